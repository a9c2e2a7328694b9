package store

import (
	"strings"

	"github.com/David-Botos/data-refinery/pkg/converter"
)

// snapshotPrefix starts the name of every cleaned-dataset snapshot table
const snapshotPrefix = "snapshot_"

// snapshotRowColumn holds the row position inside a snapshot table
const snapshotRowColumn = "_row"

var schemaTemplate = []string{
	`CREATE TABLE IF NOT EXISTS refinery_jobs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		file_key TEXT NOT NULL,
		file_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		quality_score {{FLOAT}} NULL,
		original_rows INTEGER NULL,
		cleaned_rows INTEGER NULL,
		snapshot_table TEXT NULL,
		created_at {{TIME}} NOT NULL,
		updated_at {{TIME}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refinery_jobs_status ON refinery_jobs (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS cleaning_log (
		id {{SERIAL}},
		job_id TEXT NOT NULL REFERENCES refinery_jobs (id),
		row_index INTEGER NULL,
		column_name TEXT NULL,
		action TEXT NOT NULL,
		reason TEXT NOT NULL,
		original_value TEXT NULL,
		new_value TEXT NULL,
		formula_id TEXT NOT NULL,
		was_auto_applied BOOLEAN NOT NULL,
		logged_at {{TIME}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cleaning_log_job ON cleaning_log (job_id, formula_id)`,
	`CREATE TABLE IF NOT EXISTS pending_flags (
		id {{SERIAL}},
		job_id TEXT NOT NULL REFERENCES refinery_jobs (id),
		stage TEXT NOT NULL,
		formula_id TEXT NOT NULL,
		flag_type TEXT NOT NULL,
		description TEXT NOT NULL,
		affected_columns {{TEXT_ARRAY}} NOT NULL,
		affected_rows {{INT_ARRAY}} NOT NULL,
		affected_count INTEGER NOT NULL,
		suggested_action TEXT NOT NULL DEFAULT '',
		details {{JSON}} NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_flags_job ON pending_flags (job_id)`,
	`CREATE TABLE IF NOT EXISTS job_columns (
		job_id TEXT NOT NULL REFERENCES refinery_jobs (id),
		position INTEGER NOT NULL,
		column_name TEXT NOT NULL,
		dtype TEXT NOT NULL,
		null_count INTEGER NOT NULL,
		unique_count INTEGER NOT NULL,
		htype_code TEXT NOT NULL DEFAULT '',
		sample {{JSON}} NULL,
		PRIMARY KEY (job_id, position)
	)`,
}

// schemaStatements renders the schema for a dialect
func schemaStatements(d converter.Dialect) []string {
	types := map[string]string{
		"{{SERIAL}}":     "BIGSERIAL PRIMARY KEY",
		"{{TIME}}":       "TIMESTAMPTZ",
		"{{FLOAT}}":      "DOUBLE PRECISION",
		"{{TEXT_ARRAY}}": "TEXT[]",
		"{{INT_ARRAY}}":  "INTEGER[]",
		"{{JSON}}":       "JSONB",
	}
	if d == converter.SQLite {
		types = map[string]string{
			"{{SERIAL}}":     "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{TIME}}":       "TIMESTAMP",
			"{{FLOAT}}":      "REAL",
			"{{TEXT_ARRAY}}": "TEXT",
			"{{INT_ARRAY}}":  "TEXT",
			"{{JSON}}":       "TEXT",
		}
	}

	out := make([]string, len(schemaTemplate))
	for i, stmt := range schemaTemplate {
		for k, v := range types {
			stmt = strings.ReplaceAll(stmt, k, v)
		}
		out[i] = stmt
	}
	return out
}

// snapshotTableName derives the snapshot table of a job. Job ids are UUIDs,
// so the name is stable and unique.
func snapshotTableName(jobID string) string {
	var b strings.Builder
	b.WriteString(snapshotPrefix)
	for _, r := range strings.ToLower(jobID) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
