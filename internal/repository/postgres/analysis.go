package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cropadvisor/internal/domain/suitability"
	"cropadvisor/pkg/errors"
)

// Compile-time check
var _ suitability.AnalysisRepository = (*AnalysisRepository)(nil)

// AnalysisRepository implements suitability.AnalysisRepository using sqlx
type AnalysisRepository struct {
	db DBTX
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db DBTX) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// analysisRow mirrors the analyses table
type analysisRow struct {
	ID              uuid.UUID      `db:"id"`
	Prediction      string         `db:"prediction"`
	Confidence      float64        `db:"confidence"`
	IsSuitable      bool           `db:"is_suitable"`
	Recommendations pq.StringArray `db:"recommendations"`
	Features        []byte         `db:"features"`
	Source          string         `db:"source"`
	PlantID         sql.NullInt64  `db:"plant_id"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (row *analysisRow) toDomain() *suitability.Analysis {
	a := &suitability.Analysis{
		ID:              row.ID,
		Prediction:      suitability.Verdict(row.Prediction),
		Confidence:      row.Confidence,
		IsSuitable:      row.IsSuitable,
		Recommendations: []string(row.Recommendations),
		Features:        row.Features,
		Source:          suitability.Source(row.Source),
		CreatedAt:       row.CreatedAt,
	}
	if row.PlantID.Valid {
		id := row.PlantID.Int64
		a.PlantID = &id
	}
	return a
}

const analysisColumns = `id, prediction, confidence, is_suitable, recommendations, features, source, plant_id, created_at`

// Store inserts an analysis. Zero ID and CreatedAt are filled in.
func (r *AnalysisRepository) Store(ctx context.Context, a *suitability.Analysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	features := a.Features
	if len(features) == 0 {
		features = []byte("{}")
	}
	recs := a.Recommendations
	if recs == nil {
		recs = []string{}
	}

	query := `
		INSERT INTO analyses (` + analysisColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, string(a.Prediction), a.Confidence, a.IsSuitable,
		pq.Array(recs), string(features), string(a.Source), a.PlantID, a.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert analysis")
	}
	return nil
}

// GetByID retrieves an analysis by ID
func (r *AnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*suitability.Analysis, error) {
	var row analysisRow

	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "analysis %s", id)
		}
		return nil, errors.Wrap(err, "failed to get analysis")
	}

	return row.toDomain(), nil
}

// ListRecent returns up to limit analyses, newest first
func (r *AnalysisRepository) ListRecent(ctx context.Context, limit int) ([]*suitability.Analysis, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []analysisRow

	query := `
		SELECT ` + analysisColumns + `
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1`

	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "failed to list analyses")
	}

	out := make([]*suitability.Analysis, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}
