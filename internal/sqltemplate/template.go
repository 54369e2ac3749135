// Package sqltemplate loads serving-table SQL templates. Each file carries a
// YAML frontmatter block declaring its extraction mode, followed by a
// text/template SQL body:
//
//	---
//	extract_type: incremental
//	---
//	SELECT ... FROM {{ ident .source_table_name }}
//	{{ if .is_incremental }}WHERE date >= {{ literal .incremental_value }}{{ end }}
package sqltemplate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/lib/pq"
	"gopkg.in/yaml.v3"

	"weather-etl/internal/models"
)

// ExtractType selects how a template is rendered
type ExtractType string

const (
	// ExtractFull renders without parameters
	ExtractFull ExtractType = "full"
	// ExtractIncremental renders with the source table and processing date
	ExtractIncremental ExtractType = "incremental"
)

// Template parameter names available in incremental mode
const (
	ParamIsIncremental    = "is_incremental"
	ParamSourceTableName  = "source_table_name"
	ParamIncrementalValue = "incremental_value"
)

const frontmatterDelimiter = "---"

// Frontmatter is the YAML header of a template file
type Frontmatter struct {
	ExtractType ExtractType `yaml:"extract_type"`
	Description string      `yaml:"description"`
}

// Template is one parsed SQL template file
type Template struct {
	// Name is the file name, used in logs and metrics
	Name           string
	Path           string
	Config         Frontmatter
	HasFrontmatter bool
	// SQL is the template body without the frontmatter
	SQL string

	tmpl *template.Template
}

var funcs = template.FuncMap{
	"ident":   pq.QuoteIdentifier,
	"literal": pq.QuoteLiteral,
}

// LoadDir parses every *.sql file in dir, ordered by file name
func LoadDir(dir string) ([]*Template, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, &models.ConfigError{Source: dir, Message: "invalid template directory", Err: err}
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, &models.ConfigError{Source: dir, Message: "template directory not readable", Err: err}
	}
	sort.Strings(paths)

	templates := make([]*Template, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, &models.ConfigError{Source: path, Message: "failed to read template", Err: err}
		}
		t, err := Parse(filepath.Base(path), content)
		if err != nil {
			return nil, err
		}
		t.Path = path
		templates = append(templates, t)
	}

	return templates, nil
}

// Parse splits frontmatter from the body and compiles the body
func Parse(name string, content []byte) (*Template, error) {
	t := &Template{Name: name}

	body := string(content)
	if header, rest, ok := splitFrontmatter(body); ok {
		if err := yaml.Unmarshal([]byte(header), &t.Config); err != nil {
			return nil, &models.ConfigError{Source: name, Message: "invalid frontmatter", Err: err}
		}
		t.HasFrontmatter = true
		body = rest
	}
	t.SQL = strings.TrimSpace(body)

	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(t.SQL)
	if err != nil {
		return nil, &models.ConfigError{Source: name, Message: "invalid template syntax", Err: err}
	}
	t.tmpl = tmpl

	return t, nil
}

func splitFrontmatter(content string) (header, body string, ok bool) {
	content = strings.TrimLeft(content, "\ufeff \t\r\n")
	if !strings.HasPrefix(content, frontmatterDelimiter) {
		return "", content, false
	}

	rest := strings.TrimLeft(content[len(frontmatterDelimiter):], " \t")
	rest = strings.TrimPrefix(strings.TrimPrefix(rest, "\r"), "\n")

	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		return "", content, false
	}
	header = rest[:end]
	body = rest[end+1+len(frontmatterDelimiter):]
	return header, body, true
}

// Render produces executable SQL. Full templates get no parameters;
// incremental templates get is_incremental, source_table_name and
// incremental_value (the processing date as YYYY-MM-DD). Any other
// extract_type is a *models.ConfigError.
func (t *Template) Render(sourceTable string, processingDate time.Time) (string, error) {
	var data map[string]interface{}

	switch t.Config.ExtractType {
	case ExtractFull:
		// is_incremental is the only parameter defined in full mode
		data = map[string]interface{}{ParamIsIncremental: false}
	case ExtractIncremental:
		data = map[string]interface{}{
			ParamIsIncremental:    true,
			ParamSourceTableName:  sourceTable,
			ParamIncrementalValue: processingDate.Format("2006-01-02"),
		}
	default:
		return "", &models.ConfigError{
			Source:  t.Name,
			Message: fmt.Sprintf("extract type %q is not supported, use %q or %q", t.Config.ExtractType, ExtractFull, ExtractIncremental),
		}
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", &models.ConfigError{Source: t.Name, Message: "failed to render template", Err: err}
	}

	return strings.TrimSpace(buf.String()), nil
}
