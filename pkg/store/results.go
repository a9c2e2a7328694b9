package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/converter"
	"github.com/David-Botos/data-refinery/pkg/htype"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
)

// entryBatchSize keeps multi-row inserts under the bind parameter limit
const entryBatchSize = 500

// StoredFlag is a pending flag read back from the store
type StoredFlag struct {
	Stage string
	model.PendingFlag
}

// SaveResult persists a finished run in one transaction: the audit entries,
// the flags of every stage, the column profiles, a typed snapshot of the
// cleaned dataset and the job's completion. Nothing is written when any
// step fails.
func (s *SQLStore) SaveResult(ctx context.Context, res *pipeline.Result, entries []model.CleaningLogEntry) error {
	if res == nil || res.Dataset == nil {
		return errors.New("result has no dataset")
	}
	table := snapshotTableName(res.JobID)

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		upd, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE refinery_jobs
			SET status = ?, error = NULL, quality_score = ?, original_rows = ?, cleaned_rows = ?,
				snapshot_table = ?, updated_at = ?
			WHERE id = ?`),
			model.JobCompleted, res.QualityScore, res.OriginalRowCount, res.CleanedRowCount,
			table, s.now(), res.JobID)
		if err != nil {
			return fmt.Errorf("failed to complete job: %w", err)
		}
		if n, err := upd.RowsAffected(); err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		} else if n == 0 {
			return fmt.Errorf("%w: %s", ErrJobNotFound, res.JobID)
		}

		// A job saved again replaces its earlier result
		for _, table := range []string{"cleaning_log", "pending_flags", "job_columns"} {
			if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE job_id = ?"), res.JobID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		if err := s.insertEntries(ctx, tx, entries); err != nil {
			return err
		}
		if err := s.insertFlags(ctx, tx, res.JobID, res.Flags); err != nil {
			return err
		}
		if err := s.insertColumns(ctx, tx, res); err != nil {
			return err
		}
		return s.writeSnapshot(ctx, tx, table, res)
	})
	if err != nil {
		return fmt.Errorf("failed to save result of job %s: %w", res.JobID, err)
	}

	s.logger.Info("Job result saved",
		zap.String("job_id", res.JobID),
		zap.Int("log_entries", len(entries)),
		zap.Int("flags", len(res.Flags.All())),
		zap.String("snapshot", table),
		zap.Float64("quality_score", res.QualityScore))
	return nil
}

// Revision is a reviewed version of a completed job's cleaned dataset
type Revision struct {
	JobID        string
	Dataset      *model.Dataset
	QualityScore float64
	Entries      []model.CleaningLogEntry
}

// SaveRevision appends the revision's audit entries and replaces the job's
// snapshot and column profiles in one transaction. Column classifications
// are carried over from the stored profiles.
func (s *SQLStore) SaveRevision(ctx context.Context, rev Revision) error {
	if rev.Dataset == nil {
		return errors.New("revision has no dataset")
	}
	job, err := s.GetJob(ctx, rev.JobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobCompleted || !job.SnapshotTable.Valid {
		return fmt.Errorf("job %s cannot be revised in status %s", rev.JobID, job.Status)
	}
	profiles, err := s.Columns(ctx, rev.JobID)
	if err != nil {
		return err
	}
	htypes := make(model.HtypeMap, len(profiles))
	for _, p := range profiles {
		if t, ok := htype.Lookup(p.HtypeCode); ok {
			htypes[p.Name] = t.Match(1, "stored classification")
		}
	}
	res := &pipeline.Result{
		JobID:          rev.JobID,
		Dataset:        rev.Dataset,
		ColumnMetadata: model.BuildColumnMetadata(rev.Dataset),
		HtypeMap:       htypes,
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE refinery_jobs SET quality_score = ?, cleaned_rows = ?, updated_at = ? WHERE id = ?`),
			rev.QualityScore, rev.Dataset.NumRows(), s.now(), rev.JobID); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}
		if err := s.insertEntries(ctx, tx, rev.Entries); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM job_columns WHERE job_id = ?"), rev.JobID); err != nil {
			return fmt.Errorf("failed to clear job_columns: %w", err)
		}
		if err := s.insertColumns(ctx, tx, res); err != nil {
			return err
		}
		return s.writeSnapshot(ctx, tx, job.SnapshotTable.String, res)
	})
	if err != nil {
		return fmt.Errorf("failed to save revision of job %s: %w", rev.JobID, err)
	}

	s.logger.Info("Job revision saved",
		zap.String("job_id", rev.JobID),
		zap.Int("log_entries", len(rev.Entries)),
		zap.Int("rows", rev.Dataset.NumRows()),
		zap.Float64("quality_score", rev.QualityScore))
	return nil
}

func (s *SQLStore) insertEntries(ctx context.Context, tx *sqlx.Tx, entries []model.CleaningLogEntry) error {
	for start := 0; start < len(entries); start += entryBatchSize {
		end := start + entryBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO cleaning_log (job_id, row_index, column_name, action, reason,
				original_value, new_value, formula_id, was_auto_applied, logged_at)
			VALUES (:job_id, :row_index, :column_name, :action, :reason,
				:original_value, :new_value, :formula_id, :was_auto_applied, :logged_at)`,
			entries[start:end])
		if err != nil {
			return fmt.Errorf("failed to insert audit entries %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (s *SQLStore) insertFlags(ctx context.Context, tx *sqlx.Tx, jobID string, flags pipeline.Flags) error {
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO pending_flags (job_id, stage, formula_id, flag_type, description,
			affected_columns, affected_rows, affected_count, suggested_action, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare flag insert: %w", err)
	}
	defer stmt.Close()

	for _, stage := range flags.Stages() {
		for _, f := range stage.Flags {
			cols, rows, err := s.arrayArgs(f.AffectedColumns, f.AffectedRows)
			if err != nil {
				return err
			}
			details, err := jsonArg(f.Details)
			if err != nil {
				return fmt.Errorf("failed to encode details of %s: %w", f.FormulaID, err)
			}
			if _, err := stmt.ExecContext(ctx, jobID, stage.Stage, f.FormulaID, f.FlagType, f.Description,
				cols, rows, f.AffectedCount, f.SuggestedAction, details); err != nil {
				return fmt.Errorf("failed to insert flag %s: %w", f.FormulaID, err)
			}
		}
	}
	return nil
}

// arrayArgs encodes flag arrays as Postgres arrays or, on SQLite, JSON text
func (s *SQLStore) arrayArgs(cols []string, rows []int) (interface{}, interface{}, error) {
	if cols == nil {
		cols = []string{}
	}
	if rows == nil {
		rows = []int{}
	}
	if s.dialect == converter.Postgres {
		rows64 := make([]int64, len(rows))
		for i, r := range rows {
			rows64[i] = int64(r)
		}
		return pq.Array(cols), pq.Array(rows64), nil
	}
	c, err := json.Marshal(cols)
	if err != nil {
		return nil, nil, err
	}
	r, err := json.Marshal(rows)
	if err != nil {
		return nil, nil, err
	}
	return string(c), string(r), nil
}

func jsonArg(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *SQLStore) insertColumns(ctx context.Context, tx *sqlx.Tx, res *pipeline.Result) error {
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO job_columns (job_id, position, column_name, dtype, null_count, unique_count, htype_code, sample)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare column insert: %w", err)
	}
	defer stmt.Close()

	for i, name := range res.Dataset.Columns() {
		meta := res.ColumnMetadata[name]
		sample, err := jsonArg(meta.Sample)
		if err != nil {
			return fmt.Errorf("failed to encode sample of %s: %w", name, err)
		}
		if _, err := stmt.ExecContext(ctx, res.JobID, i, name, meta.Dtype, meta.NullCount, meta.UniqueCount,
			res.HtypeMap[name].HtypeCode, sample); err != nil {
			return fmt.Errorf("failed to insert column %s: %w", name, err)
		}
	}
	return nil
}

// writeSnapshot stores the cleaned dataset in its own typed table. A
// leading _row column keeps the row order.
func (s *SQLStore) writeSnapshot(ctx context.Context, tx *sqlx.Tx, table string, res *pipeline.Result) error {
	ds := res.Dataset
	meta := s.conv.SnapshotMetadata("", table, ds, res.HtypeMap, s.dialect)

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+converter.QualifiedName("", table)); err != nil {
		return fmt.Errorf("failed to drop old snapshot: %w", err)
	}
	create, err := s.conv.CreateTableStatement(meta, pq.QuoteIdentifier(snapshotRowColumn)+" INTEGER NOT NULL")
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create snapshot table: %w", err)
	}

	quoted := make([]string, 0, len(meta.Columns)+1)
	quoted = append(quoted, pq.QuoteIdentifier(snapshotRowColumn))
	for _, c := range meta.Columns {
		quoted = append(quoted, pq.QuoteIdentifier(c.Name))
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(quoted)), ",")
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		converter.QualifiedName("", table), strings.Join(quoted, ", "), placeholders)))
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(quoted))
	for i := 0; i < ds.NumRows(); i++ {
		args[0] = i
		for j, col := range meta.Columns {
			v, err := s.conv.ConvertValue(ds.Cell(i, j), col.PgType, s.dialect)
			if err != nil {
				return fmt.Errorf("snapshot row %d column %s: %w", i, col.Name, err)
			}
			args[j+1] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert snapshot row %d: %w", i, err)
		}
	}
	return nil
}

// Entries returns the audit log of a job in insertion order
func (s *SQLStore) Entries(ctx context.Context, jobID string) ([]model.CleaningLogEntry, error) {
	var entries []model.CleaningLogEntry
	err := s.db.SelectContext(ctx, &entries, s.db.Rebind(`
		SELECT job_id, row_index, column_name, action, reason, original_value, new_value,
			formula_id, was_auto_applied, logged_at
		FROM cleaning_log WHERE job_id = ? ORDER BY id`), jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log of job %s: %w", jobID, err)
	}
	return entries, nil
}

type flagRow struct {
	Stage           string         `db:"stage"`
	FormulaID       string         `db:"formula_id"`
	FlagType        string         `db:"flag_type"`
	Description     string         `db:"description"`
	AffectedColumns []byte         `db:"affected_columns"`
	AffectedRows    []byte         `db:"affected_rows"`
	AffectedCount   int            `db:"affected_count"`
	SuggestedAction string         `db:"suggested_action"`
	Details         sql.NullString `db:"details"`
}

// Flags returns the pending flags of a job in stage order
func (s *SQLStore) Flags(ctx context.Context, jobID string) ([]StoredFlag, error) {
	var rows []flagRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT stage, formula_id, flag_type, description, affected_columns, affected_rows,
			affected_count, suggested_action, details
		FROM pending_flags WHERE job_id = ? ORDER BY id`), jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to read flags of job %s: %w", jobID, err)
	}

	flags := make([]StoredFlag, 0, len(rows))
	for _, r := range rows {
		f := StoredFlag{Stage: r.Stage, PendingFlag: model.PendingFlag{
			FormulaID:       r.FormulaID,
			FlagType:        r.FlagType,
			Description:     r.Description,
			AffectedCount:   r.AffectedCount,
			SuggestedAction: r.SuggestedAction,
		}}
		if err := s.decodeArrays(r, &f.PendingFlag); err != nil {
			return nil, fmt.Errorf("flag %s: %w", r.FormulaID, err)
		}
		if r.Details.Valid {
			if err := json.Unmarshal([]byte(r.Details.String), &f.Details); err != nil {
				return nil, fmt.Errorf("flag %s details: %w", r.FormulaID, err)
			}
		}
		flags = append(flags, f)
	}
	return flags, nil
}

func (s *SQLStore) decodeArrays(r flagRow, f *model.PendingFlag) error {
	if s.dialect == converter.Postgres {
		var cols pq.StringArray
		if err := cols.Scan(r.AffectedColumns); err != nil {
			return err
		}
		var rows pq.Int64Array
		if err := rows.Scan(r.AffectedRows); err != nil {
			return err
		}
		f.AffectedColumns = cols
		f.AffectedRows = make([]int, len(rows))
		for i, v := range rows {
			f.AffectedRows[i] = int(v)
		}
		return nil
	}
	if err := json.Unmarshal(r.AffectedColumns, &f.AffectedColumns); err != nil {
		return err
	}
	return json.Unmarshal(r.AffectedRows, &f.AffectedRows)
}

// ColumnProfile is a stored column profile of a job
type ColumnProfile struct {
	Position    int            `db:"position"`
	Name        string         `db:"column_name"`
	Dtype       string         `db:"dtype"`
	NullCount   int            `db:"null_count"`
	UniqueCount int            `db:"unique_count"`
	HtypeCode   string         `db:"htype_code"`
	Sample      sql.NullString `db:"sample"`
}

// Columns returns the column profiles of a job in dataset order
func (s *SQLStore) Columns(ctx context.Context, jobID string) ([]ColumnProfile, error) {
	var cols []ColumnProfile
	err := s.db.SelectContext(ctx, &cols, s.db.Rebind(`
		SELECT position, column_name, dtype, null_count, unique_count, htype_code, sample
		FROM job_columns WHERE job_id = ? ORDER BY position`), jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of job %s: %w", jobID, err)
	}
	return cols, nil
}

// LoadSnapshot reads the cleaned dataset of a completed job back from its
// snapshot table. Cells take the dtype recorded in the column profiles.
func (s *SQLStore) LoadSnapshot(ctx context.Context, jobID string) (*model.Dataset, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.SnapshotTable.Valid {
		return nil, fmt.Errorf("job %s has no snapshot (status %s)", jobID, job.Status)
	}
	profiles, err := s.Columns(ctx, jobID)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(profiles))
	selected := make([]string, 0, len(profiles)+1)
	selected = append(selected, pq.QuoteIdentifier(snapshotRowColumn))
	for i, p := range profiles {
		names[i] = p.Name
		selected = append(selected, pq.QuoteIdentifier(p.Name))
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(selected, ", "),
		converter.QualifiedName("", job.SnapshotTable.String),
		pq.QuoteIdentifier(snapshotRowColumn)))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot of job %s: %w", jobID, err)
	}
	defer rows.Close()

	var data [][]interface{}
	for rows.Next() {
		raw := make([]interface{}, len(selected))
		ptrs := make([]interface{}, len(selected))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		row := make([]interface{}, len(profiles))
		for i, p := range profiles {
			cell, err := s.conv.ToCell(raw[i+1], p.Dtype)
			if err != nil {
				return nil, fmt.Errorf("snapshot column %s: %w", p.Name, err)
			}
			row[i] = cell
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return model.NewDataset(names, data), nil
}
