package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"cropadvisor/internal/domain/suitability"
	"cropadvisor/pkg/errors"
)

// Compile-time check
var _ suitability.TabularStore = (*DatasetRepository)(nil)

// DatasetRepository serves the training set and ideal-value table from
// the training_samples and ideal_values tables
type DatasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sqlx.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

func allColumns() []string {
	cols := make([]string, len(featureColumns))
	for i, fc := range featureColumns {
		cols[i] = fc.column
	}
	return cols
}

// LoadTrainingSet reads all samples in insertion order. An empty table
// returns errors.ErrNotFound.
func (r *DatasetRepository) LoadTrainingSet(ctx context.Context) (*suitability.TrainingSet, error) {
	query := fmt.Sprintf(`SELECT %s, target FROM training_samples ORDER BY id`, strings.Join(allColumns(), ", "))

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query training samples")
	}
	defer rows.Close()

	ts := &suitability.TrainingSet{Columns: append([]string(nil), suitability.Schema...)}
	for rows.Next() {
		values := make([]float64, len(featureColumns))
		var label int
		dest := make([]interface{}, 0, len(values)+1)
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &label)

		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "failed to scan training sample")
		}
		ts.Samples = append(ts.Samples, suitability.Sample{Values: values, Label: label})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate training samples")
	}

	if ts.Len() == 0 {
		return nil, errors.Wrap(errors.ErrNotFound, "training_samples is empty")
	}
	return ts, nil
}

// LoadIdealTable reads every stage row. NULL cells are left out of the row.
func (r *DatasetRepository) LoadIdealTable(ctx context.Context) (suitability.IdealTable, error) {
	cols := allColumns()[1:]
	query := fmt.Sprintf(`SELECT stage, %s FROM ideal_values ORDER BY stage`, strings.Join(cols, ", "))

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query ideal values")
	}
	defer rows.Close()

	table := make(suitability.IdealTable)
	for rows.Next() {
		var stage int
		cells := make([]sql.NullFloat64, len(cols))
		dest := make([]interface{}, 0, len(cells)+1)
		dest = append(dest, &stage)
		for i := range cells {
			dest = append(dest, &cells[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "failed to scan ideal values")
		}

		row := make(suitability.IdealRow, len(cells))
		for i, c := range cells {
			if c.Valid {
				row[featureColumns[i+1].feature] = c.Float64
			}
		}
		table[stage] = row
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate ideal values")
	}

	if len(table) == 0 {
		return nil, errors.Wrap(errors.ErrNotFound, "ideal_values is empty")
	}
	return table, nil
}

// ReplaceTrainingSet swaps the stored samples for ts in one transaction.
// Columns of ts outside the schema are ignored; missing schema columns are stored as 0.
func (r *DatasetRepository) ReplaceTrainingSet(ctx context.Context, ts *suitability.TrainingSet) (int, error) {
	if ts.Len() == 0 {
		return 0, errors.ErrEmptyTrainingSet
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM training_samples`); err != nil {
		return 0, errors.Wrap(err, "failed to clear training samples")
	}

	placeholders := make([]string, len(featureColumns)+1)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(
		`INSERT INTO training_samples (%s, target) VALUES (%s)`,
		strings.Join(allColumns(), ", "), strings.Join(placeholders, ", "),
	))
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	X, y := ts.Project(suitability.Schema)
	for i, row := range X {
		args := make([]interface{}, 0, len(row)+1)
		for _, v := range row {
			args = append(args, v)
		}
		args = append(args, y[i])

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, errors.Wrapf(err, "failed to insert training sample at index %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit training samples")
	}
	return len(X), nil
}

// ReplaceIdealTable swaps the stored ideal rows for table in one transaction.
// Row keys outside the schema are ignored.
func (r *DatasetRepository) ReplaceIdealTable(ctx context.Context, table suitability.IdealTable) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ideal_values`); err != nil {
		return 0, errors.Wrap(err, "failed to clear ideal values")
	}

	stages := make([]int, 0, len(table))
	for stage := range table {
		stages = append(stages, stage)
	}
	sort.Ints(stages)

	for _, stage := range stages {
		cols := []string{"stage"}
		args := []interface{}{stage}
		for _, fc := range featureColumns[1:] {
			if v, ok := table[stage][fc.feature]; ok {
				cols = append(cols, fc.column)
				args = append(args, v)
			}
		}
		placeholders := make([]string, len(args))
		for i := range placeholders {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}

		query := fmt.Sprintf(`INSERT INTO ideal_values (%s) VALUES (%s)`,
			strings.Join(cols, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, errors.Wrapf(err, "failed to insert ideal values for stage %d", stage)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit ideal values")
	}
	return len(stages), nil
}
