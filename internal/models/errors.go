package models

import (
	"fmt"
	"strings"
)

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// LookupError is raised when a whitelisted path is absent from an API payload
type LookupError struct {
	Path string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("payload lookup failed: %s not found", e.Path)
}

func (e *LookupError) IsTransient() bool {
	return false
}

// CategoryError lists the air-and-pollen category names missing from a forecast day
type CategoryError struct {
	Missing []string
	Err     error
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("air and pollen categories missing: %s", strings.Join(e.Missing, ", "))
}

func (e *CategoryError) Unwrap() error {
	return e.Err
}

func (e *CategoryError) IsTransient() bool {
	return false
}

// SchemaError reports records that do not fit a declared table
type SchemaError struct {
	Table   string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s: %s", e.Table, e.Message)
}

func (e *SchemaError) IsTransient() bool {
	return false
}

// ConfigError covers missing configuration files, invalid values and
// unsupported template extraction modes
type ConfigError struct {
	Source  string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Source, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) IsTransient() bool {
	return false
}
