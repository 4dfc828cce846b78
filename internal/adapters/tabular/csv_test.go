package tabular

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropadvisor/internal/domain/suitability"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

const trainingCSV = `Crop Coefficient stage,Temperature [_ C],Humidity [%],Soil moisture,Crop,Target
1,25.5,60,40,wheat,1
2,35,20,10,wheat,0

1,26,61,41,rice,1
`

const idealCSV = "\ufeffCrop Coefficient stage,Temperature [_ C],Humidity [%],Soil moisture\n" +
	"1,25,60,40\n" +
	"2,28,,35\n"

func TestReadTrainingSet(t *testing.T) {
	ts, err := ReadTrainingSet(strings.NewReader(trainingCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{
		suitability.FeatureStage,
		suitability.FeatureTemperature,
		suitability.FeatureHumidity,
		suitability.FeatureSoilMoisture,
	}, ts.Columns)
	require.Equal(t, 3, ts.Len())
	assert.Equal(t, []float64{1, 25.5, 60, 40}, ts.Samples[0].Values)
	assert.Equal(t, 1, ts.Samples[0].Label)
	assert.Equal(t, 0, ts.Samples[1].Label)
}

func TestReadTrainingSet_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target error
	}{
		{name: "empty", input: "", target: errors.ErrInvalidInput},
		{name: "no target", input: "pH,Potassium\n6.5,10\n", target: errors.ErrInvalidInput},
		{name: "not a number", input: "pH,Target\nacid,1\n", target: errors.ErrInvalidInput},
		{name: "bad label", input: "pH,Target\n6.5,2\n", target: errors.ErrInvalidLabel},
		{name: "short row", input: "pH,Target\n6.5\n", target: errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTrainingSet(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestReadIdealTable(t *testing.T) {
	table, err := ReadIdealTable(strings.NewReader(idealCSV))
	require.NoError(t, err)
	require.Len(t, table, 2)

	row, ok := table.Row(1)
	require.True(t, ok)
	assert.Equal(t, 25.0, row[suitability.FeatureTemperature])
	_, hasStage := row[suitability.FeatureStage]
	assert.False(t, hasStage, "index column must not be part of the row")

	row, ok = table.Row(2)
	require.True(t, ok)
	_, hasHumidity := row[suitability.FeatureHumidity]
	assert.False(t, hasHumidity, "empty cells are skipped")
	assert.Equal(t, 35.0, row[suitability.FeatureSoilMoisture])
}

func TestReadIdealTable_Errors(t *testing.T) {
	_, err := ReadIdealTable(strings.NewReader("pH\n6.5\n"))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = ReadIdealTable(strings.NewReader("Crop Coefficient stage,pH\n1.5,6.5\n"))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestCSVStore(t *testing.T) {
	dir := t.TempDir()
	trainingPath := filepath.Join(dir, "augmented_dataset.csv")
	idealPath := filepath.Join(dir, "utility_matrix.csv")
	require.NoError(t, os.WriteFile(trainingPath, []byte(trainingCSV), 0o600))

	store := NewCSVStore(trainingPath, idealPath, logger.Nop())
	ctx := context.Background()

	ts, err := store.LoadTrainingSet(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, ts.Len())

	_, err = store.LoadIdealTable(ctx)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, os.WriteFile(idealPath, []byte(idealCSV), 0o600))
	table, err := store.LoadIdealTable(ctx)
	require.NoError(t, err)
	assert.Len(t, table, 2)
}
