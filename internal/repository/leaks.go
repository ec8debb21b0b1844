package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const leakSummaryQuery = `
		SELECT COALESCE(NULLIF(d.kind, ''), 'unknown') AS kind, COUNT(*) AS leaked
		FROM datums d
		JOIN analysis_runs r ON r.id = d.run_id
		WHERE r.name = %s AND d.leaked = %s
		GROUP BY COALESCE(NULLIF(d.kind, ''), 'unknown')
		ORDER BY leaked DESC, kind ASC
	`

// SQLLeakReporter answers leak summaries with a single aggregate query.
// Only the placeholder syntax differs between dialects.
type SQLLeakReporter struct {
	db    *sql.DB
	query string
}

// NewPostgresLeakReporter creates a reporter using $n placeholders.
func NewPostgresLeakReporter(db *sql.DB) *SQLLeakReporter {
	return &SQLLeakReporter{db: db, query: fmt.Sprintf(leakSummaryQuery, "$1", "$2")}
}

// NewMySQLLeakReporter creates a reporter using ? placeholders. SQLite
// accepts the same syntax.
func NewMySQLLeakReporter(db *sql.DB) *SQLLeakReporter {
	return &SQLLeakReporter{db: db, query: fmt.Sprintf(leakSummaryQuery, "?", "?")}
}

// LeakSummary returns leaked datum counts by kind for runName, largest
// first. An unknown run yields an empty summary.
func (r *SQLLeakReporter) LeakSummary(ctx context.Context, runName string) ([]KindLeaks, error) {
	rows, err := r.db.QueryContext(ctx, r.query, runName, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query leak summary: %w", err)
	}
	defer rows.Close()

	var summary []KindLeaks
	for rows.Next() {
		var k KindLeaks
		if err := rows.Scan(&k.Kind, &k.Count); err != nil {
			return nil, fmt.Errorf("failed to scan leak summary: %w", err)
		}
		summary = append(summary, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leak summary: %w", err)
	}

	return summary, nil
}
