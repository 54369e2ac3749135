package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"weather-etl/internal/models"
)

const (
	DefaultForecastDays = 5
	DefaultBatchSize    = 1000
)

// Pipeline is the YAML document describing one pipeline
type Pipeline struct {
	Name   string           `yaml:"name" validate:"required"`
	Config PipelineSettings `yaml:"config"`
}

// PipelineSettings mirrors the `config:` block of the pipeline YAML
type PipelineSettings struct {
	LocationKey   int    `yaml:"location_key" validate:"required,gt=0"`
	LocationName  string `yaml:"location_name"`
	ForecastDays  int    `yaml:"forecast_days" validate:"oneof=1 5 10 15"`
	LogFolderPath string `yaml:"log_folder_path"`
	BatchSize     int    `yaml:"batch_size" validate:"gte=0"`

	StagingTableName      string `yaml:"staging_table_name" validate:"required"`
	ServingTableName      string `yaml:"serving_table_name" validate:"required"`
	TransformTemplatePath string `yaml:"transform_template_path" validate:"required"`

	StagingTableNameCurrentConditions      string `yaml:"staging_table_name_current_conditions" validate:"required_with=LocationName"`
	ServingTableNameCurrentConditions      string `yaml:"serving_table_name_current_conditions" validate:"required_with=LocationName"`
	TransformTemplatePathCurrentConditions string `yaml:"transform_template_path_current_conditions" validate:"required_with=LocationName"`
}

// LogTableName is the run-log table for this pipeline
func (p *Pipeline) LogTableName() string {
	return p.Name + "_pipeline_logs"
}

// CurrentConditionsEnabled reports whether the current-conditions dataset runs
func (p *Pipeline) CurrentConditionsEnabled() bool {
	return p.Config.LocationName != ""
}

// LoadPipeline reads and validates a pipeline YAML file
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		msg := "failed to read pipeline config"
		if errors.Is(err, fs.ErrNotExist) {
			msg = fmt.Sprintf("missing %s file", path)
		}
		return nil, &models.ConfigError{Source: path, Message: msg, Err: err}
	}

	return ParsePipeline(path, data)
}

// ParsePipeline decodes YAML bytes, applies defaults and validates
func ParsePipeline(source string, data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, &models.ConfigError{Source: source, Message: "failed to parse pipeline config", Err: err}
	}

	if p.Config.ForecastDays == 0 {
		p.Config.ForecastDays = DefaultForecastDays
	}
	if p.Config.BatchSize == 0 {
		p.Config.BatchSize = DefaultBatchSize
	}

	if err := validator.New().Struct(p); err != nil {
		return nil, &models.ConfigError{Source: source, Message: "pipeline config validation failed", Err: err}
	}

	return &p, nil
}
