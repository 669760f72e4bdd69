package parser

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
)

// DuckDBLoader reads CSV logs through DuckDB's read_csv_auto. Every column
// is read as VARCHAR so cells reach the extractor untouched.
type DuckDBLoader struct {
	cfg Config
}

// NewDuckDBLoader creates a new DuckDB-backed CSV loader.
func NewDuckDBLoader(cfg Config) *DuckDBLoader {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &DuckDBLoader{cfg: cfg}
}

// Load implements the Loader interface. DuckDB decompresses .gz itself.
func (l *DuckDBLoader) Load(ctx context.Context, path string) (*Table, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf(
		`SELECT * FROM read_csv_auto(%s, header=true, all_varchar=true, delim=%s)`,
		quoteLiteral(path), quoteLiteral(string(l.cfg.Delimiter)),
	)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("duckdb read_csv_auto failed: %w", err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := &Table{Header: trimAll(header)}

	cells := make([]sql.NullString, len(header))
	dest := make([]interface{}, len(header))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			// NULL is DuckDB's rendering of an empty cell.
			row[i] = c.String
		}
		if isBlank(row) || isHeader(row, t.Header) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ErrContextCanceled
		}
		return nil, err
	}
	return t, nil
}

// ColumnInfo holds column metadata.
type ColumnInfo struct {
	Name string
	Type string
}

// GetSchemaInfo infers the column types of a CSV file with DuckDB.
func GetSchemaInfo(ctx context.Context, path string) ([]ColumnInfo, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf(`DESCRIBE SELECT * FROM read_csv_auto(%s, header=true, sample_size=1000)`, quoteLiteral(path))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var name, dtype string
		var null, key, dflt, extra interface{}
		if err := rows.Scan(&name, &dtype, &null, &key, &dflt, &extra); err != nil {
			return nil, err
		}
		columns = append(columns, ColumnInfo{Name: name, Type: dtype})
	}
	return columns, rows.Err()
}

// quoteLiteral renders s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
