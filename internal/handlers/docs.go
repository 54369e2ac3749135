package handlers

import (
	"encoding/json"
	"net/http"
)

type schema = map[string]interface{}

func queryParam(name, description string, s schema) schema {
	return schema{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      s,
	}
}

func pathParam(name, description string, s schema) schema {
	return schema{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      s,
	}
}

var (
	stringType   = schema{"type": "string"}
	integerType  = schema{"type": "integer"}
	numberType   = schema{"type": "number"}
	booleanType  = schema{"type": "boolean"}
	dateType     = schema{"type": "string", "format": "date"}
	dateTimeType = schema{"type": "string", "format": "date-time"}

	pageParams = []schema{
		queryParam("page", "Page number (default: 1)", schema{"type": "integer", "default": 1}),
		queryParam("limit", "Records per page (default: 100, max: 1000)", schema{"type": "integer", "default": defaultLimit}),
	}
	dateRangeParams = []schema{
		queryParam("start_date", "Earliest date, inclusive (YYYY-MM-DD)", dateType),
		queryParam("end_date", "Latest date, inclusive (YYYY-MM-DD)", dateType),
	}
	locationParam = queryParam("location_key", "Filter by location key", integerType)
)

func object(properties schema) schema {
	return schema{"type": "object", "properties": properties}
}

func jsonResponse(description string, body schema) schema {
	return schema{
		"description": description,
		"content": schema{
			"application/json": schema{"schema": body},
		},
	}
}

func paginated(item schema) schema {
	return object(schema{
		"data":        schema{"type": "array", "items": item},
		"total":       integerType,
		"page":        integerType,
		"limit":       integerType,
		"total_pages": integerType,
	})
}

func listOperation(summary, description string, item schema, params ...[]schema) schema {
	var all []schema
	for _, group := range params {
		all = append(all, group...)
	}
	all = append(all, pageParams...)

	return schema{
		"get": schema{
			"summary":     summary,
			"description": description,
			"parameters":  all,
			"responses": schema{
				"200": jsonResponse("Successful response", paginated(item)),
				"400": jsonResponse("Invalid query parameter", errorSchema),
			},
		},
	}
}

var errorSchema = object(schema{
	"error":   stringType,
	"message": stringType,
	"code":    integerType,
})

var forecastSchema = object(schema{
	"date":                            dateType,
	"location_key":                    integerType,
	"sunrise_time":                    schema{"type": "string", "format": "date-time", "nullable": true},
	"sunset_time":                     schema{"type": "string", "format": "date-time", "nullable": true},
	"minimum_temperature_value":       numberType,
	"maximum_temperature_value":       numberType,
	"day_has_precipitation":           booleanType,
	"night_has_precipitation":         booleanType,
	"day_precipitation_probability":   integerType,
	"night_precipitation_probability": integerType,
	"day_wind_speed_value":            numberType,
	"night_wind_speed_value":          numberType,
	"uvindex_category":                stringType,
	"has_precipitation":               booleanType,
	"time_between_sunset_and_sunrise": schema{"type": "string", "example": "13:05:30"},
	"windier_period":                  schema{"type": "string", "enum": []string{"day", "night"}},
})

var precipitationSchema = object(schema{
	"date":                                dateType,
	"count_precipitations_next_five_days": integerType,
})

var uvSchema = object(schema{
	"date":              dateType,
	"location_key":      integerType,
	"location_name":     stringType,
	"uv_index_category": schema{"type": "string", "enum": []string{"LOW", "MODERATE", "HIGH", "VERY HIGH", "EXTREME"}},
})

var runSchema = object(schema{
	"run_id":        stringType,
	"pipeline_name": stringType,
	"status":        schema{"type": "string", "enum": []string{"pending", "success", "failure"}},
	"config":        stringType,
	"logs":          stringType,
	"started_at":    dateTimeType,
	"ended_at":      schema{"type": "string", "format": "date-time", "nullable": true},
})

func openAPIDocument() schema {
	return schema{
		"openapi": "3.0.0",
		"info": schema{
			"title":       "Weather ETL Reporting API",
			"description": "Read access to staged AccuWeather forecasts, serving tables and pipeline run logs",
			"version":     "1.0.0",
		},
		"servers": []schema{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": schema{
			"/api/forecasts": listOperation("List forecast days",
				"Staged daily forecasts, newest first", forecastSchema,
				[]schema{locationParam}, dateRangeParams),
			"/api/forecasts/{location_key}/{date}": schema{
				"get": schema{
					"summary": "Get one forecast day",
					"parameters": []schema{
						pathParam("location_key", "Location key", integerType),
						pathParam("date", "Forecast date (YYYY-MM-DD)", dateType),
					},
					"responses": schema{
						"200": jsonResponse("Successful response", forecastSchema),
						"404": jsonResponse("Forecast not found", errorSchema),
					},
				},
			},
			"/api/precipitation": listOperation("List precipitation outlook",
				"Days with precipitation in the five days starting at each date", precipitationSchema,
				dateRangeParams),
			"/api/uv": listOperation("List UV index categories",
				"Current-conditions UV category per location and date", uvSchema,
				[]schema{locationParam}, dateRangeParams),
			"/api/runs": listOperation("List pipeline runs",
				"Run log rows, newest first", runSchema,
				[]schema{queryParam("status", "Filter by run status", schema{"type": "string", "enum": []string{"pending", "success", "failure"}})}),
			"/api/runs/{run_id}": schema{
				"get": schema{
					"summary":    "Get one pipeline run",
					"parameters": []schema{pathParam("run_id", "Run ID", stringType)},
					"responses": schema{
						"200": jsonResponse("Successful response", runSchema),
						"404": jsonResponse("Run not found", errorSchema),
					},
				},
			},
			"/health": schema{
				"get": schema{
					"summary": "Health check",
					"responses": schema{
						"200": jsonResponse("API and database are healthy", object(schema{"status": stringType, "database": stringType})),
						"503": jsonResponse("Database unreachable", object(schema{"status": stringType, "database": stringType})),
					},
				},
			},
			"/metrics": schema{
				"get": schema{
					"summary": "Prometheus metrics",
					"responses": schema{
						"200": schema{
							"description": "Prometheus metrics in text format",
							"content":     schema{"text/plain": schema{"schema": stringType}},
						},
					},
				},
			},
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 document for the reporting API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument())
}
