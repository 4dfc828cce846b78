package suitability

// Canonical feature labels. They match the training CSV headers and the
// ideal-value table columns exactly.
const (
	FeatureStage          = "Crop Coefficient stage"
	FeatureTemperature    = "Temperature [_ C]"
	FeatureHumidity       = "Humidity [%]"
	FeatureSoilMoisture   = "Soil moisture"
	FeatureNitrogen       = "Nitrogen [mg/kg]"
	FeaturePhosphorus     = "Phosphorus [mg/kg]"
	FeaturePotassium      = "Potassium"
	FeaturePH             = "pH"
	FeatureSolarRadiation = "Solar Radiation ghi"
	FeatureWindSpeed      = "Wind Speed"

	// TargetColumn holds the binary suitability label in the training data
	TargetColumn = "Target"
)

// Schema is the fixed, ordered feature list.
// Order must be identical at training and inference time.
var Schema = []string{
	FeatureStage,
	FeatureTemperature,
	FeatureHumidity,
	FeatureSoilMoisture,
	FeatureNitrogen,
	FeaturePhosphorus,
	FeaturePotassium,
	FeaturePH,
	FeatureSolarRadiation,
	FeatureWindSpeed,
}

// InSchema reports whether name is one of the canonical features
func InSchema(name string) bool {
	for _, f := range Schema {
		if f == name {
			return true
		}
	}
	return false
}

// IntersectSchema returns the schema features present in columns, in schema order
func IntersectSchema(columns []string) []string {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}

	out := make([]string, 0, len(Schema))
	for _, f := range Schema {
		if _, ok := present[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
