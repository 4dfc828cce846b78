// Package tabular reads the training set and ideal-value table from CSV files.
package tabular

import (
	"context"
	"encoding/csv"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"cropadvisor/internal/domain/suitability"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

// CSVStore loads both tables from files on disk. Files are re-read on every
// call so a reload picks up replaced files.
type CSVStore struct {
	trainingPath string
	idealPath    string
	log          *logger.Logger
}

var _ suitability.TabularStore = (*CSVStore)(nil)

// NewCSVStore creates a store over the given file paths
func NewCSVStore(trainingPath, idealPath string, log *logger.Logger) *CSVStore {
	return &CSVStore{
		trainingPath: trainingPath,
		idealPath:    idealPath,
		log:          log.With("component", "csv_store"),
	}
}

// LoadTrainingSet reads the training CSV
func (s *CSVStore) LoadTrainingSet(ctx context.Context) (*suitability.TrainingSet, error) {
	f, err := open(s.trainingPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s.log.Infow("Loading training data", "path", s.trainingPath)
	ts, err := ReadTrainingSet(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.trainingPath)
	}
	return ts, nil
}

// LoadIdealTable reads the ideal-value CSV
func (s *CSVStore) LoadIdealTable(ctx context.Context) (suitability.IdealTable, error) {
	f, err := open(s.idealPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s.log.Infow("Loading ideal-value table", "path", s.idealPath)
	table, err := ReadIdealTable(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.idealPath)
	}
	return table, nil
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(errors.ErrNotFound, "file %s", path)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return f, nil
}

// ReadTrainingSet parses a header row followed by numeric rows. Schema
// columns and the Target column are read, any other column is ignored.
func ReadTrainingSet(r io.Reader) (*suitability.TrainingSet, error) {
	cr := newReader(r)

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	target := -1
	var columns []string
	var indexes []int
	for i, name := range header {
		switch {
		case name == suitability.TargetColumn:
			target = i
		case suitability.InSchema(name):
			columns = append(columns, name)
			indexes = append(indexes, i)
		}
	}
	if target < 0 {
		return nil, errors.NewValidationError("header", "missing target column", suitability.TargetColumn)
	}

	ts := &suitability.TrainingSet{Columns: columns}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if blank(record) {
			continue
		}

		values := make([]float64, len(indexes))
		for j, i := range indexes {
			v, err := parseCell(record, i)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %q", line, header[i])
			}
			values[j] = v
		}

		label, err := parseLabel(record, target)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		ts.Samples = append(ts.Samples, suitability.Sample{Values: values, Label: label})
	}

	return ts, nil
}

// ReadIdealTable parses a table indexed by the stage column. The stage
// column is not part of a row; empty cells are left out of the row.
func ReadIdealTable(r io.Reader) (suitability.IdealTable, error) {
	cr := newReader(r)

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	stageIdx := -1
	for i, name := range header {
		if name == suitability.FeatureStage {
			stageIdx = i
			break
		}
	}
	if stageIdx < 0 {
		return nil, errors.NewValidationError("header", "missing stage index column", suitability.FeatureStage)
	}

	table := make(suitability.IdealTable)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if blank(record) {
			continue
		}

		sv, err := parseCell(record, stageIdx)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d stage", line)
		}
		if sv != math.Trunc(sv) {
			return nil, errors.Wrapf(errors.NewValidationError(suitability.FeatureStage, "must be an integer", sv), "line %d", line)
		}

		row := make(suitability.IdealRow, len(header)-1)
		for i, name := range header {
			if i == stageIdx || i >= len(record) || strings.TrimSpace(record[i]) == "" {
				continue
			}
			v, err := parseCell(record, i)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %q", line, name)
			}
			row[name] = v
		}
		table[int(sv)] = row
	}

	return table, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return cr
}

func readHeader(cr *csv.Reader) ([]string, error) {
	record, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty file")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	header := make([]string, len(record))
	for i, h := range record {
		header[i] = strings.TrimSpace(h)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, nil
}

func parseCell(record []string, i int) (float64, error) {
	if i >= len(record) {
		return 0, errors.NewValidationError("cell", "missing value", nil)
	}
	raw := strings.TrimSpace(record[i])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewValidationError("cell", "not a number", raw)
	}
	return v, nil
}

func parseLabel(record []string, i int) (int, error) {
	v, err := parseCell(record, i)
	if err != nil {
		return 0, err
	}
	if v != 0 && v != 1 {
		return 0, errors.Wrapf(errors.ErrInvalidLabel, "target %v", v)
	}
	return int(v), nil
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
