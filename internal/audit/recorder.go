// Package audit appends field-level change records for decisions. Entries
// are written inside the caller's transaction so a decision change and its
// trail commit together.
package audit

import (
	"context"
	"database/sql"
	"time"
)

type Recorder struct {
	Now func() time.Time
}

// Entry is one audit record to append. FieldName, OldValue and NewValue are
// nil for created and deleted entries.
type Entry struct {
	DecisionID  int64
	ChangedByID int64
	ChangeType  string
	FieldName   *string
	OldValue    *string
	NewValue    *string
}

func (r Recorder) Append(ctx context.Context, tx *sql.Tx, e Entry) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO decision_audit_log(decision_id,changed_by_id,change_type,field_name,old_value,new_value,changed_at) VALUES (?,?,?,?,?,?,?)`,
		e.DecisionID, e.ChangedByID, e.ChangeType, nullablePtr(e.FieldName), nullablePtr(e.OldValue), nullablePtr(e.NewValue), ts)
	return err
}

func nullablePtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
