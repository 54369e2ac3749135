package models

import (
	"time"
)

// ForecastRecord is one flattened daily forecast row, keyed by (date, location_key).
// The mapstructure tags name the flat columns produced by the transform and
// the db tags name the staging table columns; both sets are identical.
type ForecastRecord struct {
	Date        time.Time `json:"date" db:"date" mapstructure:"date"`
	LocationKey int       `json:"location_key" db:"location_key" mapstructure:"location_key"`

	SunriseTime  *time.Time `json:"sunrise_time,omitempty" db:"sunrise_time" mapstructure:"sunrise_time"`
	SunsetTime   *time.Time `json:"sunset_time,omitempty" db:"sunset_time" mapstructure:"sunset_time"`
	MoonriseTime *time.Time `json:"moonrise_time,omitempty" db:"moonrise_time" mapstructure:"moonrise_time"`
	MoonsetTime  *time.Time `json:"moonset_time,omitempty" db:"moonset_time" mapstructure:"moonset_time"`
	MoonPhase    string     `json:"moon_phase" db:"moon_phase" mapstructure:"moon_phase"`

	MinimumTemperatureValue         float64 `json:"minimum_temperature_value" db:"minimum_temperature_value" mapstructure:"minimum_temperature_value"`
	MinimumTemperatureUnit          string  `json:"minimum_temperature_unit" db:"minimum_temperature_unit" mapstructure:"minimum_temperature_unit"`
	MaximumTemperatureValue         float64 `json:"maximum_temperature_value" db:"maximum_temperature_value" mapstructure:"maximum_temperature_value"`
	MaximumTemperatureUnit          string  `json:"maximum_temperature_unit" db:"maximum_temperature_unit" mapstructure:"maximum_temperature_unit"`
	MinimumRealFeelTemperatureValue float64 `json:"minimum_real_feel_temperature_value" db:"minimum_real_feel_temperature_value" mapstructure:"minimum_real_feel_temperature_value"`
	MinimumRealFeelTemperatureUnit  string  `json:"minimum_real_feel_temperature_unit" db:"minimum_real_feel_temperature_unit" mapstructure:"minimum_real_feel_temperature_unit"`
	MaximumRealFeelTemperatureValue float64 `json:"maximum_real_feel_temperature_value" db:"maximum_real_feel_temperature_value" mapstructure:"maximum_real_feel_temperature_value"`
	MaximumRealFeelTemperatureUnit  string  `json:"maximum_real_feel_temperature_unit" db:"maximum_real_feel_temperature_unit" mapstructure:"maximum_real_feel_temperature_unit"`

	DayHasPrecipitation           bool `json:"day_has_precipitation" db:"day_has_precipitation" mapstructure:"day_has_precipitation"`
	DayPrecipitationProbability   int  `json:"day_precipitation_probability" db:"day_precipitation_probability" mapstructure:"day_precipitation_probability"`
	DayThunderstormProbability    int  `json:"day_thunderstorm_probability" db:"day_thunderstorm_probability" mapstructure:"day_thunderstorm_probability"`
	DayRainProbability            int  `json:"day_rain_probability" db:"day_rain_probability" mapstructure:"day_rain_probability"`
	DaySnowProbability            int  `json:"day_snow_probability" db:"day_snow_probability" mapstructure:"day_snow_probability"`
	DayIceProbability             int  `json:"day_ice_probability" db:"day_ice_probability" mapstructure:"day_ice_probability"`
	NightHasPrecipitation         bool `json:"night_has_precipitation" db:"night_has_precipitation" mapstructure:"night_has_precipitation"`
	NightPrecipitationProbability int  `json:"night_precipitation_probability" db:"night_precipitation_probability" mapstructure:"night_precipitation_probability"`
	NightThunderstormProbability  int  `json:"night_thunderstorm_probability" db:"night_thunderstorm_probability" mapstructure:"night_thunderstorm_probability"`
	NightRainProbability          int  `json:"night_rain_probability" db:"night_rain_probability" mapstructure:"night_rain_probability"`
	NightSnowProbability          int  `json:"night_snow_probability" db:"night_snow_probability" mapstructure:"night_snow_probability"`
	NightIceProbability           int  `json:"night_ice_probability" db:"night_ice_probability" mapstructure:"night_ice_probability"`

	DayWindSpeedValue                     float64 `json:"day_wind_speed_value" db:"day_wind_speed_value" mapstructure:"day_wind_speed_value"`
	DayWindSpeedUnit                      string  `json:"day_wind_speed_unit" db:"day_wind_speed_unit" mapstructure:"day_wind_speed_unit"`
	DayWindDirectionDegrees               int     `json:"day_wind_direction_degrees" db:"day_wind_direction_degrees" mapstructure:"day_wind_direction_degrees"`
	DayWindDirectionEnglishAbbreviation   string  `json:"day_wind_direction_english_abbreviation" db:"day_wind_direction_english_abbreviation" mapstructure:"day_wind_direction_english_abbreviation"`
	NightWindSpeedValue                   float64 `json:"night_wind_speed_value" db:"night_wind_speed_value" mapstructure:"night_wind_speed_value"`
	NightWindSpeedUnit                    string  `json:"night_wind_speed_unit" db:"night_wind_speed_unit" mapstructure:"night_wind_speed_unit"`
	NightWindDirectionDegrees             int     `json:"night_wind_direction_degrees" db:"night_wind_direction_degrees" mapstructure:"night_wind_direction_degrees"`
	NightWindDirectionEnglishAbbreviation string  `json:"night_wind_direction_english_abbreviation" db:"night_wind_direction_english_abbreviation" mapstructure:"night_wind_direction_english_abbreviation"`

	DayPercentageCloudCover   int `json:"day_percentage_cloud_cover" db:"day_percentage_cloud_cover" mapstructure:"day_percentage_cloud_cover"`
	NightPercentageCloudCover int `json:"night_percentage_cloud_cover" db:"night_percentage_cloud_cover" mapstructure:"night_percentage_cloud_cover"`

	AirQualityCategory string `json:"airquality_category" db:"airquality_category" mapstructure:"airquality_category"`
	GrassCategory      string `json:"grass_category" db:"grass_category" mapstructure:"grass_category"`
	MoldCategory       string `json:"mold_category" db:"mold_category" mapstructure:"mold_category"`
	RagweedCategory    string `json:"ragweed_category" db:"ragweed_category" mapstructure:"ragweed_category"`
	TreeCategory       string `json:"tree_category" db:"tree_category" mapstructure:"tree_category"`
	UVIndexCategory    string `json:"uvindex_category" db:"uvindex_category" mapstructure:"uvindex_category"`

	// Derived columns
	HasPrecipitation            bool   `json:"has_precipitation" db:"has_precipitation" mapstructure:"has_precipitation"`
	TimeBetweenSunsetAndSunrise string `json:"time_between_sunset_and_sunrise" db:"time_between_sunset_and_sunrise" mapstructure:"time_between_sunset_and_sunrise"`
	WindierPeriod               string `json:"windier_period" db:"windier_period" mapstructure:"windier_period"`
}

// CurrentConditionsRecord is one observation snapshot, keyed by
// (date, location_key, location_name).
type CurrentConditionsRecord struct {
	Date            time.Time `json:"date" db:"date" mapstructure:"date"`
	ObservationTime time.Time `json:"observation_time" db:"observation_time" mapstructure:"observation_time"`
	LocationKey     int       `json:"location_key" db:"location_key" mapstructure:"location_key"`
	LocationName    string    `json:"location_name" db:"location_name" mapstructure:"location_name"`

	WeatherText         string  `json:"weather_text" db:"weather_text" mapstructure:"weather_text"`
	HasPrecipitation    bool    `json:"has_precipitation" db:"has_precipitation" mapstructure:"has_precipitation"`
	PrecipitationType   *string `json:"precipitation_type,omitempty" db:"precipitation_type" mapstructure:"precipitation_type"`
	PrecipitationValue  float64 `json:"precipitation_value" db:"precipitation_value" mapstructure:"precipitation_value"`
	Temperature         float64 `json:"temperature" db:"temperature" mapstructure:"temperature"`
	RealFeelTemperature float64 `json:"real_feel_temperature" db:"real_feel_temperature" mapstructure:"real_feel_temperature"`
	RelativeHumidity    float64 `json:"relative_humidity" db:"relative_humidity" mapstructure:"relative_humidity"`
	DewPoint            float64 `json:"dew_point" db:"dew_point" mapstructure:"dew_point"`
	WindDirection       string  `json:"wind_direction" db:"wind_direction" mapstructure:"wind_direction"`
	WindSpeed           float64 `json:"wind_speed" db:"wind_speed" mapstructure:"wind_speed"`
	UVIndex             int     `json:"uv_index" db:"uv_index" mapstructure:"uv_index"`
	UVIndexCategory     string  `json:"uv_index_category" db:"uv_index_category" mapstructure:"uv_index_category"`
	Visibility          float64 `json:"visibility" db:"visibility" mapstructure:"visibility"`
	Pressure            float64 `json:"pressure" db:"pressure" mapstructure:"pressure"`
}

// PrecipitationOutlook is a row of the forecast serving table
type PrecipitationOutlook struct {
	Date                            time.Time `json:"date" db:"date"`
	CountPrecipitationsNextFiveDays int       `json:"count_precipitations_next_five_days" db:"count_precipitations_next_five_days"`
}

// UVCategory is a row of the current-conditions serving table
type UVCategory struct {
	Date            time.Time `json:"date" db:"date"`
	LocationKey     int       `json:"location_key" db:"location_key"`
	LocationName    string    `json:"location_name" db:"location_name"`
	UVIndexCategory string    `json:"uv_index_category" db:"uv_index_category"`
}
