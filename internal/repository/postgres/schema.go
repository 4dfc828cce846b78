package postgres

import (
	"context"

	"cropadvisor/internal/domain/suitability"
	"cropadvisor/pkg/errors"
)

// featureColumn maps a canonical feature label to its SQL column
type featureColumn struct {
	feature string
	column  string
}

// featureColumns follows suitability.Schema order
var featureColumns = []featureColumn{
	{suitability.FeatureStage, "stage"},
	{suitability.FeatureTemperature, "temperature"},
	{suitability.FeatureHumidity, "humidity"},
	{suitability.FeatureSoilMoisture, "soil_moisture"},
	{suitability.FeatureNitrogen, "nitrogen"},
	{suitability.FeaturePhosphorus, "phosphorus"},
	{suitability.FeaturePotassium, "potassium"},
	{suitability.FeaturePH, "ph"},
	{suitability.FeatureSolarRadiation, "solar_radiation"},
	{suitability.FeatureWindSpeed, "wind_speed"},
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS training_samples (
	id              BIGSERIAL PRIMARY KEY,
	stage           DOUBLE PRECISION NOT NULL,
	temperature     DOUBLE PRECISION NOT NULL DEFAULT 0,
	humidity        DOUBLE PRECISION NOT NULL DEFAULT 0,
	soil_moisture   DOUBLE PRECISION NOT NULL DEFAULT 0,
	nitrogen        DOUBLE PRECISION NOT NULL DEFAULT 0,
	phosphorus      DOUBLE PRECISION NOT NULL DEFAULT 0,
	potassium       DOUBLE PRECISION NOT NULL DEFAULT 0,
	ph              DOUBLE PRECISION NOT NULL DEFAULT 0,
	solar_radiation DOUBLE PRECISION NOT NULL DEFAULT 0,
	wind_speed      DOUBLE PRECISION NOT NULL DEFAULT 0,
	target          SMALLINT NOT NULL CHECK (target IN (0, 1))
);

CREATE TABLE IF NOT EXISTS ideal_values (
	stage           INTEGER PRIMARY KEY,
	temperature     DOUBLE PRECISION,
	humidity        DOUBLE PRECISION,
	soil_moisture   DOUBLE PRECISION,
	nitrogen        DOUBLE PRECISION,
	phosphorus      DOUBLE PRECISION,
	potassium       DOUBLE PRECISION,
	ph              DOUBLE PRECISION,
	solar_radiation DOUBLE PRECISION,
	wind_speed      DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS analyses (
	id              UUID PRIMARY KEY,
	prediction      TEXT NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	is_suitable     BOOLEAN NOT NULL,
	recommendations TEXT[] NOT NULL DEFAULT '{}',
	features        JSONB NOT NULL,
	source          TEXT NOT NULL,
	plant_id        BIGINT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses (created_at DESC);
`

// Migrate creates the tables used by the repositories when they are missing
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
