// Command flatten runs the flatten transform over a saved API payload without
// touching the database, printing one JSON record per line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"weather-etl/internal/transform"
	"weather-etl/pkg/logging"
)

func main() {
	kind := flag.String("kind", "forecast", "Payload kind: forecast or current")
	file := flag.String("file", "", "Saved JSON response (reads stdin when empty)")
	locationKey := flag.Int("location-key", 0, "Location key stored on each record")
	locationName := flag.String("location-name", "", "Location name stored on current-conditions records")
	flag.Parse()

	logger := logging.NewStructuredLogger("weather-etl-flatten", "1.0.0", logging.InfoLevel)
	logger.SetOutput(os.Stderr)
	ctx := context.Background()

	data, err := readInput(*file)
	if err != nil {
		logger.Error(ctx, "[FLATTEN_READ_ERROR] Failed to read payload", logging.Fields{"file": *file}, err)
		os.Exit(1)
	}

	var records []interface{}
	switch *kind {
	case "forecast":
		records, err = flattenForecast(data, *locationKey)
	case "current":
		records, err = flattenCurrent(data, *locationKey, *locationName)
	default:
		err = fmt.Errorf("unknown kind %q, expected forecast or current", *kind)
	}
	if err != nil {
		logger.Error(ctx, "[FLATTEN_ERROR] Failed to flatten payload", logging.Fields{"kind": *kind}, err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			logger.Error(ctx, "[FLATTEN_WRITE_ERROR] Failed to write record", logging.Fields{}, err)
			os.Exit(1)
		}
	}

	logger.Info(ctx, "[FLATTEN_COMPLETE] Payload flattened", logging.Fields{
		"kind":    *kind,
		"records": len(records),
	})
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// decodeObjects accepts a single JSON object or an array of them
func decodeObjects(data []byte) ([]transform.Payload, error) {
	var many []transform.Payload
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one transform.Payload
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("payload is neither a JSON object nor an array of objects: %w", err)
	}
	return []transform.Payload{one}, nil
}

func flattenForecast(data []byte, locationKey int) ([]interface{}, error) {
	days, err := decodeObjects(data)
	if err != nil {
		return nil, err
	}
	// A full forecast response wraps the days in DailyForecasts.
	if len(days) == 1 {
		if wrapped, ok := days[0]["DailyForecasts"].([]interface{}); ok {
			days = days[:0]
			for _, d := range wrapped {
				day, ok := d.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("DailyForecasts entry is %T, not an object", d)
				}
				days = append(days, day)
			}
		}
	}

	records, err := transform.ForecastRecords(days, locationKey)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(records))
	for i := range records {
		out[i] = records[i]
	}
	return out, nil
}

func flattenCurrent(data []byte, locationKey int, locationName string) ([]interface{}, error) {
	observations, err := decodeObjects(data)
	if err != nil {
		return nil, err
	}

	out := make([]interface{}, 0, len(observations))
	for _, obs := range observations {
		record, err := transform.CurrentConditionsRecord(obs, locationKey, locationName)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}
