package sqltemplate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-etl/internal/models"
)

var processingDate = time.Date(2024, 5, 1, 13, 45, 0, 0, time.UTC)

const incrementalSQL = `---
extract_type: incremental
description: rows since processing date
---
SELECT date FROM {{ ident .source_table_name }}
{{- if .is_incremental }}
WHERE date >= {{ literal .incremental_value }}
{{- end }}
`

func TestParse_Frontmatter(t *testing.T) {
	tmpl, err := Parse("01_outlook.sql", []byte(incrementalSQL))
	require.NoError(t, err)

	assert.True(t, tmpl.HasFrontmatter)
	assert.Equal(t, ExtractIncremental, tmpl.Config.ExtractType)
	assert.Equal(t, "rows since processing date", tmpl.Config.Description)
	assert.NotContains(t, tmpl.SQL, "extract_type")
}

func TestRender_Incremental(t *testing.T) {
	tmpl, err := Parse("01_outlook.sql", []byte(incrementalSQL))
	require.NoError(t, err)

	sql, err := tmpl.Render("forecast_staging", processingDate)
	require.NoError(t, err)
	assert.Equal(t, "SELECT date FROM \"forecast_staging\"\nWHERE date >= '2024-05-01'", sql)
}

func TestRender_FullHasNoParameters(t *testing.T) {
	tmpl, err := Parse("full.sql", []byte("---\nextract_type: full\n---\nSELECT 1 FROM staging"))
	require.NoError(t, err)

	sql, err := tmpl.Render("ignored", processingDate)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM staging", sql)

	tmpl, err = Parse("full_with_param.sql", []byte("---\nextract_type: full\n---\nSELECT 1 FROM {{ .source_table_name }}"))
	require.NoError(t, err)

	_, err = tmpl.Render("ignored", processingDate)
	var cfgErr *models.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestRender_SharedBodyUnderBothModes(t *testing.T) {
	body := "SELECT date FROM staging{{ if .is_incremental }} WHERE date >= {{ literal .incremental_value }}{{ end }}"

	full, err := Parse("shared.sql", []byte("---\nextract_type: full\n---\n"+body))
	require.NoError(t, err)
	sql, err := full.Render("staging", processingDate)
	require.NoError(t, err)
	assert.Equal(t, "SELECT date FROM staging", sql)

	incremental, err := Parse("shared.sql", []byte("---\nextract_type: incremental\n---\n"+body))
	require.NoError(t, err)
	sql, err = incremental.Render("staging", processingDate)
	require.NoError(t, err)
	assert.Equal(t, "SELECT date FROM staging WHERE date >= '2024-05-01'", sql)
}

func TestRender_UnsupportedExtractType(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown mode", "---\nextract_type: snapshot\n---\nSELECT 1"},
		{"no frontmatter", "SELECT 1"},
		{"empty mode", "---\ndescription: x\n---\nSELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse("bad.sql", []byte(tt.content))
			require.NoError(t, err)

			_, err = tmpl.Render("staging", processingDate)
			var cfgErr *models.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "bad.sql", cfgErr.Source)
		})
	}
}

func TestParse_InvalidInput(t *testing.T) {
	_, err := Parse("bad_yaml.sql", []byte("---\nextract_type: [full\n---\nSELECT 1"))
	var cfgErr *models.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = Parse("bad_tmpl.sql", []byte("---\nextract_type: full\n---\nSELECT {{ .x "))
	assert.True(t, errors.As(err, &cfgErr))
}

func TestLoadDir_SortedByName(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"20_second.sql": "---\nextract_type: full\n---\nSELECT 2",
		"10_first.sql":  "---\nextract_type: full\n---\nSELECT 1",
		"README.md":     "not a template",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	templates, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "10_first.sql", templates[0].Name)
	assert.Equal(t, "20_second.sql", templates[1].Name)
	assert.Equal(t, filepath.Join(dir, "10_first.sql"), templates[0].Path)
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	var cfgErr *models.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestShippedTemplatesRender(t *testing.T) {
	for _, dir := range []string{"forecast", "current_conditions"} {
		t.Run(dir, func(t *testing.T) {
			templates, err := LoadDir(filepath.Join("..", "..", "templates", dir))
			require.NoError(t, err)
			require.NotEmpty(t, templates)

			for _, tmpl := range templates {
				assert.True(t, tmpl.HasFrontmatter, tmpl.Name)
				sql, err := tmpl.Render("accuweather_forecast_staging", processingDate)
				require.NoError(t, err, tmpl.Name)
				assert.Contains(t, sql, "SELECT")
				assert.NotContains(t, sql, "{{")
			}
		})
	}
}
