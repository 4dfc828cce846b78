package suitability

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropadvisor/pkg/errors"
)

func TestFeatures_UnmarshalKeepsDocumentOrder(t *testing.T) {
	var f Features
	err := json.Unmarshal([]byte(`{"pH": 6.5, "Crop Coefficient stage": 2, "Temperature [_ C]": 24.5, "Potassium": null}`), &f)
	require.NoError(t, err)

	assert.Equal(t, []string{FeaturePH, FeatureStage, FeatureTemperature}, f.Keys())
	v, ok := f.Get(FeatureTemperature)
	assert.True(t, ok)
	assert.Equal(t, 24.5, v)

	_, ok = f.Get(FeaturePotassium)
	assert.False(t, ok, "null values are treated as absent")
}

func TestFeatures_UnmarshalRejectsNonNumbers(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "boolean value", input: `{"pH": true}`},
		{name: "nested object", input: `{"pH": {"v": 1}}`},
		{name: "array root", input: `[1, 2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Features
			err := json.Unmarshal([]byte(tt.input), &f)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidInput))
		})
	}
}

func TestFeatures_VectorDefaultsMissingToZero(t *testing.T) {
	f := FeaturesOf(FeatureTemperature, 25.0, "unknown", 3.0)

	vec := f.Vector(Schema)
	require.Len(t, vec, len(Schema))
	assert.Equal(t, 0.0, vec[0])
	assert.Equal(t, 25.0, vec[1])
	for _, v := range vec[2:] {
		assert.Equal(t, 0.0, v)
	}
}

func TestFeatures_SetKeepsFirstPosition(t *testing.T) {
	f := NewFeatures()
	f.Set("a", 1)
	f.Set("b", 2)
	f.Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, f.Keys())
	v, _ := f.Get("a")
	assert.Equal(t, 3.0, v)
}

func TestFeatures_Stage(t *testing.T) {
	stage, ok := FeaturesOf(FeatureStage, 2.0).Stage()
	assert.True(t, ok)
	assert.Equal(t, 2, stage)

	_, ok = FeaturesOf(FeatureStage, 1.5).Stage()
	assert.False(t, ok)

	_, ok = NewFeatures().Stage()
	assert.False(t, ok)
}

func TestFeatures_MarshalRoundTripPreservesOrder(t *testing.T) {
	f := FeaturesOf("z", 1, "a", 2.5)

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z":1,"a":2.5}`, string(data))
	assert.Equal(t, `{"z":1,"a":2.5}`, string(data))
}

func TestIntersectSchema_KeepsSchemaOrder(t *testing.T) {
	cols := []string{"Target", FeaturePH, "Extra", FeatureStage, FeatureHumidity}
	assert.Equal(t, []string{FeatureStage, FeatureHumidity, FeaturePH}, IntersectSchema(cols))
	assert.Empty(t, IntersectSchema([]string{"Target"}))
}

func TestTrainingSet_Project(t *testing.T) {
	ts := &TrainingSet{
		Columns: []string{"b", "a"},
		Samples: []Sample{{Values: []float64{1, 2}, Label: 1}, {Values: []float64{3, 4}, Label: 0}},
	}

	X, y := ts.Project([]string{"a", "b"})
	assert.Equal(t, [][]float64{{2, 1}, {4, 3}}, X)
	assert.Equal(t, []int{1, 0}, y)
}

func TestFeatures_FingerprintDistinguishesEmbeddedSeparators(t *testing.T) {
	spliced := FeaturesOf(FeatureTemperature+"=30;"+FeaturePH, 7.0)
	direct := FeaturesOf(FeatureTemperature, 30.0, FeaturePH, 7.0)
	quoted := FeaturesOf(`a"="1;"b`, 2.0)
	split := FeaturesOf("a", 1.0, "b", 2.0)

	assert.NotEqual(t, spliced.Fingerprint(), direct.Fingerprint())
	assert.NotEqual(t, quoted.Fingerprint(), split.Fingerprint())
	assert.Equal(t, direct.Fingerprint(), FeaturesOf(FeatureTemperature, 30.0, FeaturePH, 7.0).Fingerprint())
}
