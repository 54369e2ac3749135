package transform

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Decode copies a flat row into a record struct by its mapstructure tags.
// Timestamp strings become time.Time; unknown columns are an error so a
// record never silently drops data.
func Decode(row Row, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeHookFunc(time.RFC3339),
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(row); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	return nil
}
