package repository

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Postgres column types used by the declared tables
const (
	TypeDate      = "DATE"
	TypeTimestamp = "TIMESTAMPTZ"
	TypeText      = "TEXT"
	TypeInteger   = "INTEGER"
	TypeDouble    = "DOUBLE PRECISION"
	TypeBoolean   = "BOOLEAN"
)

// Column is one declared column
type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
}

// Table is a declared table schema. It is created once if absent and never
// altered afterwards.
type Table struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in declaration order
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKey returns the key column names in declaration order
func (t Table) PrimaryKey() []string {
	var keys []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

// HasColumn reports whether name is a declared column
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// CreateSQL renders an idempotent CREATE TABLE statement
func (t Table) CreateSQL() string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		defs = append(defs, fmt.Sprintf("%s %s", pq.QuoteIdentifier(c.Name), c.Type))
	}
	if keys := t.PrimaryKey(); len(keys) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteAll(keys)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", pq.QuoteIdentifier(t.Name), strings.Join(defs, ",\n\t"))
}

// DropSQL renders an idempotent DROP TABLE statement
func (t Table) DropSQL() string {
	return "DROP TABLE IF EXISTS " + pq.QuoteIdentifier(t.Name)
}

// UpsertSQL renders a named-parameter INSERT .. ON CONFLICT for the given
// columns. sqlx expands the VALUES tuple once per record of a batch.
func (t Table) UpsertSQL(columns []string) string {
	params := make([]string, len(columns))
	for i, c := range columns {
		params[i] = ":" + c
	}

	keys := t.PrimaryKey()
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	var updates []string
	for _, c := range columns {
		if !isKey[c] {
			q := pq.QuoteIdentifier(c)
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
		}
	}

	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		pq.QuoteIdentifier(t.Name),
		quoteAll(columns),
		strings.Join(params, ", "),
		quoteAll(keys),
		conflict,
	)
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = pq.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

// ForecastStagingTable declares the flattened daily forecast table
func ForecastStagingTable(name string) Table {
	return Table{
		Name: name,
		Columns: []Column{
			{"date", TypeDate, true},
			{"location_key", TypeInteger, true},
			{"sunrise_time", TypeTimestamp, false},
			{"sunset_time", TypeTimestamp, false},
			{"moonrise_time", TypeTimestamp, false},
			{"moonset_time", TypeTimestamp, false},
			{"moon_phase", TypeText, false},
			{"minimum_temperature_value", TypeDouble, false},
			{"minimum_temperature_unit", TypeText, false},
			{"maximum_temperature_value", TypeDouble, false},
			{"maximum_temperature_unit", TypeText, false},
			{"minimum_real_feel_temperature_value", TypeDouble, false},
			{"minimum_real_feel_temperature_unit", TypeText, false},
			{"maximum_real_feel_temperature_value", TypeDouble, false},
			{"maximum_real_feel_temperature_unit", TypeText, false},
			{"day_has_precipitation", TypeBoolean, false},
			{"day_precipitation_probability", TypeInteger, false},
			{"day_thunderstorm_probability", TypeInteger, false},
			{"day_rain_probability", TypeInteger, false},
			{"day_snow_probability", TypeInteger, false},
			{"day_ice_probability", TypeInteger, false},
			{"night_has_precipitation", TypeBoolean, false},
			{"night_precipitation_probability", TypeInteger, false},
			{"night_thunderstorm_probability", TypeInteger, false},
			{"night_rain_probability", TypeInteger, false},
			{"night_snow_probability", TypeInteger, false},
			{"night_ice_probability", TypeInteger, false},
			{"day_wind_speed_value", TypeDouble, false},
			{"day_wind_speed_unit", TypeText, false},
			{"day_wind_direction_degrees", TypeInteger, false},
			{"day_wind_direction_english_abbreviation", TypeText, false},
			{"night_wind_speed_value", TypeDouble, false},
			{"night_wind_speed_unit", TypeText, false},
			{"night_wind_direction_degrees", TypeInteger, false},
			{"night_wind_direction_english_abbreviation", TypeText, false},
			{"day_percentage_cloud_cover", TypeInteger, false},
			{"night_percentage_cloud_cover", TypeInteger, false},
			{"airquality_category", TypeText, false},
			{"grass_category", TypeText, false},
			{"mold_category", TypeText, false},
			{"ragweed_category", TypeText, false},
			{"tree_category", TypeText, false},
			{"uvindex_category", TypeText, false},
			{"has_precipitation", TypeBoolean, false},
			{"time_between_sunset_and_sunrise", TypeText, false},
			{"windier_period", TypeText, false},
		},
	}
}

// ForecastServingTable declares the precipitation outlook table
func ForecastServingTable(name string) Table {
	return Table{
		Name: name,
		Columns: []Column{
			{"date", TypeDate, true},
			{"count_precipitations_next_five_days", TypeInteger, false},
		},
	}
}

// CurrentConditionsStagingTable declares the flattened observation table
func CurrentConditionsStagingTable(name string) Table {
	return Table{
		Name: name,
		Columns: []Column{
			{"date", TypeDate, true},
			{"observation_time", TypeTimestamp, false},
			{"location_key", TypeInteger, true},
			{"location_name", TypeText, true},
			{"weather_text", TypeText, false},
			{"has_precipitation", TypeBoolean, false},
			{"precipitation_type", TypeText, false},
			{"precipitation_value", TypeDouble, false},
			{"temperature", TypeDouble, false},
			{"real_feel_temperature", TypeDouble, false},
			{"relative_humidity", TypeDouble, false},
			{"dew_point", TypeDouble, false},
			{"wind_direction", TypeText, false},
			{"wind_speed", TypeDouble, false},
			{"uv_index", TypeInteger, false},
			{"uv_index_category", TypeText, false},
			{"visibility", TypeDouble, false},
			{"pressure", TypeDouble, false},
		},
	}
}

// CurrentConditionsServingTable declares the per-location UV category table
func CurrentConditionsServingTable(name string) Table {
	return Table{
		Name: name,
		Columns: []Column{
			{"date", TypeDate, true},
			{"location_key", TypeInteger, true},
			{"location_name", TypeText, true},
			{"uv_index_category", TypeText, false},
		},
	}
}

// RunLogTable declares the pipeline run log
func RunLogTable(name string) Table {
	return Table{
		Name: name,
		Columns: []Column{
			{"run_id", TypeText, true},
			{"pipeline_name", TypeText, false},
			{"status", TypeText, false},
			{"config", TypeText, false},
			{"logs", TypeText, false},
			{"started_at", TypeTimestamp, false},
			{"ended_at", TypeTimestamp, false},
		},
	}
}
