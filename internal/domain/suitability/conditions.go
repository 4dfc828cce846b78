package suitability

import (
	"math"

	"cropadvisor/pkg/errors"
)

// DefaultPH is used when a request omits pH
const DefaultPH = 6.5

// Conditions is the transport-level measurement set with short field names.
// Stage, temperature, humidity and soil moisture are required.
type Conditions struct {
	Stage          *float64 `json:"stage"`
	Temperature    *float64 `json:"temperature"`
	Humidity       *float64 `json:"humidity"`
	SoilMoisture   *float64 `json:"soil_moisture"`
	Nitrogen       *float64 `json:"nitrogen"`
	Phosphorus     *float64 `json:"phosphorus"`
	Potassium      *float64 `json:"potassium"`
	PH             *float64 `json:"ph"`
	SolarRadiation *float64 `json:"solar_radiation"`
	WindSpeed      *float64 `json:"wind_speed"`
}

// Validate checks required fields and that stage is an integer
func (c *Conditions) Validate() error {
	required := []struct {
		field string
		value *float64
	}{
		{"stage", c.Stage},
		{"temperature", c.Temperature},
		{"humidity", c.Humidity},
		{"soil_moisture", c.SoilMoisture},
	}
	for _, r := range required {
		if r.value == nil {
			return errors.NewValidationError(r.field, "field required", nil)
		}
	}
	if *c.Stage != math.Trunc(*c.Stage) {
		return errors.NewValidationError("stage", "must be an integer", *c.Stage)
	}
	return nil
}

// Features maps the conditions onto canonical labels in schema order.
// Optional fields default to 0, pH to DefaultPH.
func (c *Conditions) Features() *Features {
	f := NewFeatures()
	f.Set(FeatureStage, valueOr(c.Stage, 0))
	f.Set(FeatureTemperature, valueOr(c.Temperature, 0))
	f.Set(FeatureHumidity, valueOr(c.Humidity, 0))
	f.Set(FeatureSoilMoisture, valueOr(c.SoilMoisture, 0))
	f.Set(FeatureNitrogen, valueOr(c.Nitrogen, 0))
	f.Set(FeaturePhosphorus, valueOr(c.Phosphorus, 0))
	f.Set(FeaturePotassium, valueOr(c.Potassium, 0))
	f.Set(FeaturePH, valueOr(c.PH, DefaultPH))
	f.Set(FeatureSolarRadiation, valueOr(c.SolarRadiation, 0))
	f.Set(FeatureWindSpeed, valueOr(c.WindSpeed, 0))
	return f
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
