package repository

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"

	"weather-etl/internal/models"
	"weather-etl/pkg/database"
	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

// DefaultBatchSize bounds the number of records in one INSERT statement
const DefaultBatchSize = 1000

// Row is a generic result row keyed by column name
type Row = map[string]interface{}

// Connector owns table creation, existence checks, upserts and ad-hoc queries
// against the relational store.
type Connector interface {
	TableExists(ctx context.Context, name string) (bool, error)
	EnsureTable(ctx context.Context, table Table) error
	DropTable(ctx context.Context, table Table) error
	// Upsert accepts a slice of db-tagged structs (or pointers to them) or a
	// []map[string]interface{} and returns the number of rows written.
	Upsert(ctx context.Context, table Table, records interface{}) (int, error)
	Query(ctx context.Context, query string, args ...interface{}) ([]Row, error)
}

type connector struct {
	db        *database.PostgresDB
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	mapper    *reflectx.Mapper
	batchSize int
}

// NewConnector creates a connector over an open database. A non-positive
// batchSize selects DefaultBatchSize.
func NewConnector(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, batchSize int) Connector {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &connector{
		db:        db,
		logger:    logger,
		metrics:   metricsCollector,
		mapper:    reflectx.NewMapperFunc("db", sqlx.NameMapper),
		batchSize: batchSize,
	}
}

const tableExistsQuery = `
	SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1
	)
`

// TableExists checks the catalog of the current schema
func (c *connector) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	if err := c.db.GetContext(ctx, "table_exists", &exists, tableExistsQuery, name); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return exists, nil
}

// EnsureTable creates the table if it is absent. Existing tables are left as they are.
func (c *connector) EnsureTable(ctx context.Context, table Table) error {
	if _, err := c.db.ExecContext(ctx, "create_table", table.CreateSQL()); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table.Name, err)
	}
	return nil
}

// DropTable removes the table if it exists
func (c *connector) DropTable(ctx context.Context, table Table) error {
	if _, err := c.db.ExecContext(ctx, "drop_table", table.DropSQL()); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table.Name, err)
	}
	return nil
}

// Upsert ensures the table and writes all records in one transaction, one
// set-based INSERT .. ON CONFLICT per batch. Records sharing a primary key
// collapse to the last one.
func (c *connector) Upsert(ctx context.Context, table Table, records interface{}) (int, error) {
	rows, columns, err := c.toRows(table, records)
	if err != nil {
		return 0, err
	}
	rows = dedupeByKey(rows, table.PrimaryKey())

	start := time.Now()
	err = c.db.InTx(ctx, "upsert", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, table.CreateSQL()); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.Name, err)
		}
		if len(rows) == 0 {
			return nil
		}

		query := table.UpsertSQL(columns)
		for offset := 0; offset < len(rows); offset += c.batchSize {
			end := offset + c.batchSize
			if end > len(rows) {
				end = len(rows)
			}
			if _, err := tx.NamedExecContext(ctx, query, rows[offset:end]); err != nil {
				return fmt.Errorf("failed to upsert into %s: %w", table.Name, err)
			}
			c.metrics.UpsertBatchSize.Observe(float64(end - offset))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.metrics.RecordUpsert(table.Name, len(rows))
	c.logger.Info(ctx, "[REPO_UPSERT] Records upserted", logging.Fields{
		"table":       table.Name,
		"records":     len(rows),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return len(rows), nil
}

// Query runs arbitrary SQL and returns every row as a column map. Text
// values arriving as []byte are converted to string.
func (c *connector) Query(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	rows, err := c.db.QueryContext(ctx, "query", query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		row := make(Row)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return result, nil
}

// toRows validates records against the table and converts them to column
// maps. Struct records must map exactly onto the declared columns; map
// records may omit non-key columns.
func (c *connector) toRows(table Table, records interface{}) ([]Row, []string, error) {
	if records == nil {
		return nil, nil, nil
	}
	if maps, ok := records.([]Row); ok {
		return mapRows(table, maps)
	}

	v := reflect.ValueOf(records)
	if v.Kind() != reflect.Slice {
		return nil, nil, &models.SchemaError{Table: table.Name, Message: fmt.Sprintf("records must be a slice, got %T", records)}
	}

	elem := reflectx.Deref(v.Type().Elem())
	if elem.Kind() != reflect.Struct {
		return nil, nil, &models.SchemaError{Table: table.Name, Message: fmt.Sprintf("unsupported record type %s", v.Type().Elem())}
	}
	if err := c.checkStructColumns(table, elem); err != nil {
		return nil, nil, err
	}

	columns := table.ColumnNames()
	fields := c.mapper.TypeMap(elem)
	indexes := make([][]int, len(columns))
	for j, col := range columns {
		indexes[j] = fields.GetByPath(col).Index
	}

	rows := make([]Row, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		item := reflect.Indirect(v.Index(i))
		if !item.IsValid() {
			return nil, nil, &models.SchemaError{Table: table.Name, Message: fmt.Sprintf("record %d is nil", i)}
		}
		row := make(Row, len(columns))
		for j, col := range columns {
			row[col] = fieldValue(item, indexes[j])
		}
		rows = append(rows, row)
	}

	return rows, columns, nil
}

// fieldValue reads a field without allocating nil pointers on the way, so a
// nil pointer column is sent as NULL and the record is left untouched.
func fieldValue(item reflect.Value, index []int) interface{} {
	f := reflectx.FieldByIndexesReadOnly(item, index)
	switch f.Kind() {
	case reflect.Ptr, reflect.Interface:
		if f.IsNil() {
			return nil
		}
	}
	return f.Interface()
}

func (c *connector) checkStructColumns(table Table, t reflect.Type) error {
	fields := map[string]bool{}
	for _, fi := range c.mapper.TypeMap(t).Tree.Children {
		if fi == nil || fi.Name == "-" {
			continue
		}
		fields[fi.Name] = true
	}

	var problems []string
	for _, col := range table.ColumnNames() {
		if !fields[col] {
			problems = append(problems, "missing field for column "+col)
		}
		delete(fields, col)
	}
	for name := range fields {
		problems = append(problems, "unknown column "+name)
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return &models.SchemaError{Table: table.Name, Message: fmt.Sprintf("%s does not match: %s", t.Name(), strings.Join(problems, "; "))}
	}
	return nil
}

func mapRows(table Table, maps []Row) ([]Row, []string, error) {
	present := map[string]bool{}
	for i, m := range maps {
		for k := range m {
			if !table.HasColumn(k) {
				return nil, nil, &models.SchemaError{Table: table.Name, Message: fmt.Sprintf("record %d: unknown column %s", i, k)}
			}
			present[k] = true
		}
		for _, k := range table.PrimaryKey() {
			if v, ok := m[k]; !ok || v == nil {
				return nil, nil, &models.SchemaError{Table: table.Name, Message: fmt.Sprintf("record %d: missing primary key column %s", i, k)}
			}
		}
	}

	var columns []string
	for _, col := range table.ColumnNames() {
		if present[col] {
			columns = append(columns, col)
		}
	}

	rows := make([]Row, len(maps))
	for i, m := range maps {
		row := make(Row, len(columns))
		for _, col := range columns {
			row[col] = m[col]
		}
		rows[i] = row
	}
	return rows, columns, nil
}

// dedupeByKey keeps the last record per primary key, preserving first-seen order
func dedupeByKey(rows []Row, keys []string) []Row {
	if len(rows) < 2 || len(keys) == 0 {
		return rows
	}

	index := make(map[string]int, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		k := keyOf(row, keys)
		if pos, seen := index[k]; seen {
			out[pos] = row
			continue
		}
		index[k] = len(out)
		out = append(out, row)
	}
	return out
}

func keyOf(row Row, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		switch v := row[k].(type) {
		case time.Time:
			parts[i] = v.UTC().Format(time.RFC3339Nano)
		default:
			parts[i] = fmt.Sprintf("%v", v)
		}
	}
	return strings.Join(parts, "\x1f")
}
