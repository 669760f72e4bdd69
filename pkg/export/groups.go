package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
)

// groupsQuery rolls a lifecycle event table up to one row per group.
// Wait and meal seconds are only filled for transitions that were counted.
const groupsQuery = `
	COPY (
		SELECT
			group_id,
			MAX(party_size) AS party_size,
			MIN(at) FILTER (WHERE kind = 'joined') AS joined_at,
			MIN(at) FILTER (WHERE kind = 'seated') AS seated_at,
			MIN(at) FILTER (WHERE kind = 'completed') AS completed_at,
			SUM(elapsed_seconds) FILTER (WHERE kind = 'seated' AND counted) AS wait_seconds,
			SUM(elapsed_seconds) FILTER (WHERE kind = 'completed' AND counted) AS meal_seconds,
			COUNT(*) AS events
		FROM read_parquet('%s')
		GROUP BY group_id
		ORDER BY group_id
	) TO '%s' (FORMAT PARQUET, COMPRESSION '%s')
`

// WriteGroupsFile reads an events Parquet file written by WriteEventsFile and
// writes a per-group summary table to path using DuckDB.
func WriteGroupsFile(ctx context.Context, eventsPath, path string, c CompressionType) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf(groupsQuery, quote(eventsPath), quote(path), duckdbCompression(c))
	if _, err := db.ExecContext(ctx, query); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write group summary: %w", err)
	}
	return nil
}

// quote escapes a path for use inside a single-quoted SQL literal.
func quote(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}

func duckdbCompression(c CompressionType) string {
	if c == CompressionNone {
		return "uncompressed"
	}
	return c.String()
}
