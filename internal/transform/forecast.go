package transform

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"weather-etl/internal/models"
)

var forecastColumns = []column{
	{"Sun.Rise", "sunrise_time"},
	{"Sun.Set", "sunset_time"},
	{"Moon.Rise", "moonrise_time"},
	{"Moon.Set", "moonset_time"},
	{"Moon.Phase", "moon_phase"},
	{"Temperature.Minimum.Value", "minimum_temperature_value"},
	{"Temperature.Minimum.Unit", "minimum_temperature_unit"},
	{"Temperature.Maximum.Value", "maximum_temperature_value"},
	{"Temperature.Maximum.Unit", "maximum_temperature_unit"},
	{"RealFeelTemperature.Minimum.Value", "minimum_real_feel_temperature_value"},
	{"RealFeelTemperature.Minimum.Unit", "minimum_real_feel_temperature_unit"},
	{"RealFeelTemperature.Maximum.Value", "maximum_real_feel_temperature_value"},
	{"RealFeelTemperature.Maximum.Unit", "maximum_real_feel_temperature_unit"},
	{"Day.HasPrecipitation", "day_has_precipitation"},
	{"Day.PrecipitationProbability", "day_precipitation_probability"},
	{"Day.ThunderstormProbability", "day_thunderstorm_probability"},
	{"Day.RainProbability", "day_rain_probability"},
	{"Day.SnowProbability", "day_snow_probability"},
	{"Day.IceProbability", "day_ice_probability"},
	{"Night.HasPrecipitation", "night_has_precipitation"},
	{"Night.PrecipitationProbability", "night_precipitation_probability"},
	{"Night.ThunderstormProbability", "night_thunderstorm_probability"},
	{"Night.RainProbability", "night_rain_probability"},
	{"Night.SnowProbability", "night_snow_probability"},
	{"Night.IceProbability", "night_ice_probability"},
	{"Day.Wind.Speed.Value", "day_wind_speed_value"},
	{"Day.Wind.Speed.Unit", "day_wind_speed_unit"},
	{"Day.Wind.Direction.Degrees", "day_wind_direction_degrees"},
	{"Day.Wind.Direction.English", "day_wind_direction_english_abbreviation"},
	{"Night.Wind.Speed.Value", "night_wind_speed_value"},
	{"Night.Wind.Speed.Unit", "night_wind_speed_unit"},
	{"Night.Wind.Direction.Degrees", "night_wind_direction_degrees"},
	{"Night.Wind.Direction.English", "night_wind_direction_english_abbreviation"},
	{"Day.CloudCover", "day_percentage_cloud_cover"},
	{"Night.CloudCover", "night_percentage_cloud_cover"},
}

// AirAndPollenNames are the category entries every forecast day must carry
var AirAndPollenNames = []string{"AirQuality", "Grass", "Mold", "Ragweed", "Tree", "UVIndex"}

// Derived forecast columns
const (
	ColHasPrecipitation            = "has_precipitation"
	ColTimeBetweenSunsetAndSunrise = "time_between_sunset_and_sunrise"
	ColWindierPeriod               = "windier_period"
)

func categoryColumn(name string) string {
	return strings.ToLower(name) + "_category"
}

// ForecastColumns lists every column a flattened and derived forecast row has
func ForecastColumns() []string {
	cols := []string{"date", "location_key"}
	for _, c := range forecastColumns {
		cols = append(cols, c.name)
	}
	for _, name := range AirAndPollenNames {
		cols = append(cols, categoryColumn(name))
	}
	return append(cols, ColHasPrecipitation, ColTimeBetweenSunsetAndSunrise, ColWindierPeriod)
}

// FlattenForecast selects and renames the whitelisted paths of one
// DailyForecasts entry, truncates Date to a calendar date and unpivots
// AirAndPollen into per-category columns.
func FlattenForecast(day Payload, locationKey int) (Row, error) {
	raw, err := Lookup(day, "Date")
	if err != nil {
		return nil, err
	}
	ts, err := parseTimestamp("Date", raw)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, &models.ValidationError{Field: "Date", Message: "Date: must not be null"}
	}

	row := Row{
		"date":         CalendarDate(*ts),
		"location_key": locationKey,
	}
	if err := project(day, forecastColumns, row); err != nil {
		return nil, err
	}

	categories, err := unpivotCategories(day)
	if err != nil {
		return nil, err
	}
	for k, v := range categories {
		row[k] = v
	}

	return row, nil
}

// unpivotCategories finds each expected AirAndPollen entry by Name. Extra
// entries are ignored; every absent name is reported at once.
func unpivotCategories(day Payload) (Row, error) {
	raw, err := Lookup(day, "AirAndPollen")
	if err != nil {
		return nil, err
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, &models.ValidationError{
			Field:   "AirAndPollen",
			Message: fmt.Sprintf("AirAndPollen: expected array, got %T", raw),
		}
	}

	byName := make(map[string]any, len(entries))
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := obj["Name"].(string); ok {
			byName[name] = obj["Category"]
		}
	}

	row := Row{}
	var missing []string
	var errs *multierror.Error
	for _, name := range AirAndPollenNames {
		category, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			errs = multierror.Append(errs, &models.LookupError{Path: "AirAndPollen[Name=" + name + "].Category"})
			continue
		}
		row[categoryColumn(name)] = category
	}

	if len(missing) > 0 {
		return nil, &models.CategoryError{Missing: missing, Err: errs.ErrorOrNil()}
	}
	return row, nil
}

// DeriveForecastColumns adds has_precipitation, the sunrise-to-sunset
// duration and the windier period to a flattened row.
func DeriveForecastColumns(row Row) error {
	row[ColHasPrecipitation] = asBool(row["day_has_precipitation"]) || asBool(row["night_has_precipitation"])

	rise, err := parseTimestamp("sunrise_time", row["sunrise_time"])
	if err != nil {
		return err
	}
	set, err := parseTimestamp("sunset_time", row["sunset_time"])
	if err != nil {
		return err
	}
	daylight := ""
	if rise != nil && set != nil {
		daylight = FormatDuration(set.Sub(*rise))
	}
	row[ColTimeBetweenSunsetAndSunrise] = daylight

	daySpeed, ok := asFloat(row["day_wind_speed_value"])
	if !ok {
		return &models.ValidationError{Field: "day_wind_speed_value", Message: "day_wind_speed_value: expected number"}
	}
	nightSpeed, ok := asFloat(row["night_wind_speed_value"])
	if !ok {
		return &models.ValidationError{Field: "night_wind_speed_value", Message: "night_wind_speed_value: expected number"}
	}
	row[ColWindierPeriod] = WindierPeriod(daySpeed, nightSpeed)

	return nil
}

// ForecastRecords flattens, derives and decodes every forecast day
func ForecastRecords(days []Payload, locationKey int) ([]models.ForecastRecord, error) {
	records := make([]models.ForecastRecord, 0, len(days))
	for i, day := range days {
		row, err := FlattenForecast(day, locationKey)
		if err != nil {
			return nil, fmt.Errorf("forecast day %d: %w", i, err)
		}
		if err := DeriveForecastColumns(row); err != nil {
			return nil, fmt.Errorf("forecast day %d: %w", i, err)
		}

		var rec models.ForecastRecord
		if err := Decode(row, &rec); err != nil {
			return nil, fmt.Errorf("forecast day %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
