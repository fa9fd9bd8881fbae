// Package repo provides the Postgres audit journal for annotation mutations
package repo

import (
	"context"

	perr "challengeutils/internal/platform/errors"
	"challengeutils/internal/platform/store"
	dom "challengeutils/internal/services/submissions/domain"
)

// PG journals annotation mutations into the annotation_audit table
type PG struct{ st *store.Store }

// NewPG constructs the Postgres audit journal
func NewPG(st *store.Store) *PG { return &PG{st: st} }

// Schema is the journal's table definition, applied by the operator
// (or a migration step) before first use
const Schema = `
CREATE TABLE IF NOT EXISTS annotation_audit (
	id            uuid PRIMARY KEY,
	submission_id text NOT NULL DEFAULT '',
	evaluation_id text NOT NULL DEFAULT '',
	op            text NOT NULL,
	keys          text[] NOT NULL DEFAULT '{}',
	forced        boolean NOT NULL DEFAULT false,
	created_at    timestamptz NOT NULL
)`

// EnsureSchema creates the journal table when missing
func (r *PG) EnsureSchema(ctx context.Context) error {
	_, err := r.st.Exec(ctx, Schema)
	return perr.WrapIf(err, perr.ErrorCodeDB, "audit ensure schema")
}

// Record implements domain.AuditPort
func (r *PG) Record(ctx context.Context, e dom.AuditEntry) error {
	const q = `
		INSERT INTO annotation_audit (id, submission_id, evaluation_id, op, keys, forced, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.st.Exec(ctx, q, e.ID, e.SubmissionID, e.EvaluationID, e.Op, e.Keys, e.Forced, e.CreatedAt)
	return perr.WrapIf(err, perr.ErrorCodeDB, "audit record")
}

// Recent lists the latest journal entries for a submission, newest first
func (r *PG) Recent(ctx context.Context, submissionID string, limit int) ([]dom.AuditEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	const q = `
		SELECT id, submission_id, evaluation_id, op, keys, forced, created_at
		FROM annotation_audit
		WHERE submission_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.st.Query(ctx, q, submissionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dom.AuditEntry
	for rows.Next() {
		var e dom.AuditEntry
		if err := rows.Scan(&e.ID, &e.SubmissionID, &e.EvaluationID, &e.Op, &e.Keys, &e.Forced, &e.CreatedAt); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeDB, "audit scan")
		}
		out = append(out, e)
	}
	return out, perr.WrapIf(rows.Err(), perr.ErrorCodeDB, "audit rows")
}
