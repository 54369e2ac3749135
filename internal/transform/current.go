package transform

import (
	"fmt"

	"weather-etl/internal/models"
)

var currentConditionsColumns = []column{
	{"WeatherText", "weather_text"},
	{"HasPrecipitation", "has_precipitation"},
	{"PrecipitationType", "precipitation_type"},
	{"PrecipitationSummary.Precipitation.Metric.Value", "precipitation_value"},
	{"Temperature.Metric.Value", "temperature"},
	{"RealFeelTemperature.Metric.Value", "real_feel_temperature"},
	{"RelativeHumidity", "relative_humidity"},
	{"DewPoint.Metric.Value", "dew_point"},
	{"Wind.Direction.English", "wind_direction"},
	{"Wind.Speed.Metric.Value", "wind_speed"},
	{"UVIndex", "uv_index"},
	{"Visibility.Metric.Value", "visibility"},
	{"Pressure.Metric.Value", "pressure"},
}

// CurrentConditionsColumns lists every column of a flattened observation
func CurrentConditionsColumns() []string {
	cols := []string{"date", "observation_time", "location_key", "location_name"}
	for _, c := range currentConditionsColumns {
		cols = append(cols, c.name)
	}
	return append(cols, "uv_index_category")
}

// FlattenCurrentConditions projects one observation and adds the location
// and the UV index category.
func FlattenCurrentConditions(obs Payload, locationKey int, locationName string) (Row, error) {
	raw, err := Lookup(obs, "LocalObservationDateTime")
	if err != nil {
		return nil, err
	}
	ts, err := parseTimestamp("LocalObservationDateTime", raw)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, &models.ValidationError{
			Field:   "LocalObservationDateTime",
			Message: "LocalObservationDateTime: must not be null",
		}
	}

	row := Row{
		"date":             CalendarDate(*ts),
		"observation_time": *ts,
		"location_key":     locationKey,
		"location_name":    locationName,
	}
	if err := project(obs, currentConditionsColumns, row); err != nil {
		return nil, err
	}

	uv, ok := asFloat(row["uv_index"])
	if !ok {
		return nil, &models.ValidationError{
			Field:   "uv_index",
			Value:   fmt.Sprintf("%v", row["uv_index"]),
			Message: "uv_index: expected number",
		}
	}
	row["uv_index"] = int(uv)
	row["uv_index_category"] = UVIndexCategory(int(uv))

	return row, nil
}

// CurrentConditionsRecord flattens and decodes one observation
func CurrentConditionsRecord(obs Payload, locationKey int, locationName string) (models.CurrentConditionsRecord, error) {
	var rec models.CurrentConditionsRecord

	row, err := FlattenCurrentConditions(obs, locationKey, locationName)
	if err != nil {
		return rec, fmt.Errorf("current conditions: %w", err)
	}
	if err := Decode(row, &rec); err != nil {
		return rec, fmt.Errorf("current conditions: %w", err)
	}
	return rec, nil
}
