package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestRunStatus_Valid(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   bool
	}{
		{RunPending, true},
		{RunSuccess, true},
		{RunFailure, true},
		{RunStatus("running"), false},
		{RunStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrors_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "lookup",
			err:  &LookupError{Path: "Day.Wind.Speed.Value"},
			want: "payload lookup failed: Day.Wind.Speed.Value not found",
		},
		{
			name: "category",
			err:  &CategoryError{Missing: []string{"Grass", "Tree"}},
			want: "air and pollen categories missing: Grass, Tree",
		},
		{
			name: "schema",
			err:  &SchemaError{Table: "forecast_staging", Message: "unknown column foo"},
			want: "table forecast_staging: unknown column foo",
		},
		{
			name: "config without cause",
			err:  &ConfigError{Source: "daily.sql", Message: "unsupported extract_type \"weekly\""},
			want: "config daily.sql: unsupported extract_type \"weekly\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrors_ArePermanent(t *testing.T) {
	type transient interface{ IsTransient() bool }

	errs := []transient{
		&ValidationError{Message: "bad"},
		&LookupError{},
		&CategoryError{},
		&SchemaError{},
		&ConfigError{},
	}
	for _, err := range errs {
		if err.IsTransient() {
			t.Errorf("%T should not be transient", err)
		}
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("no such file")
	err := fmt.Errorf("loading: %w", &ConfigError{Source: "pipeline.yaml", Message: "read failed", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable with errors.Is")
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatal("expected ConfigError in chain")
	}
	if cfgErr.Source != "pipeline.yaml" {
		t.Errorf("Source = %q, want pipeline.yaml", cfgErr.Source)
	}
}
