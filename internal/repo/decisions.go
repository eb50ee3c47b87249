package repo

import (
	"context"
	"database/sql"
	"strings"

	"asyncops/internal/domain"
)

const decisionCols = `d.id,d.created_by_id,d.title,d.description,d.context,d.outcome,d.decision_date,d.tags,d.created_at,d.updated_at,
u.id,u.email,u.full_name`

const decisionFrom = ` FROM decisions d JOIN users u ON u.id=d.created_by_id `

func scanDecision(scan func(dest ...any) error) (domain.Decision, error) {
	var d domain.Decision
	var tags sql.NullString
	var creatorID sql.NullInt64
	var creatorEmail, creatorName sql.NullString
	err := scan(&d.ID, &d.CreatedByID, &d.Title, &d.Description, &d.Context, &d.Outcome, &d.DecisionDate, &tags,
		&d.CreatedAt, &d.UpdatedAt, &creatorID, &creatorEmail, &creatorName)
	if err != nil {
		return d, err
	}
	d.Tags = unmarshalTags(tags)
	d.CreatedBy = userRef(creatorID, creatorEmail, creatorName)
	return d, nil
}

func (r Repo) InsertDecision(ctx context.Context, tx *sql.Tx, d domain.Decision) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO decisions(created_by_id,title,description,context,outcome,decision_date,tags,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		d.CreatedByID, d.Title, d.Description, d.Context, d.Outcome, d.DecisionDate, marshalTags(d.Tags), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetDecision(ctx context.Context, id int64) (domain.Decision, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+decisionCols+decisionFrom+`WHERE d.id=?`, id)
	d, err := scanDecision(row.Scan)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	participants, err := r.ListParticipants(ctx, d.ID)
	if err != nil {
		return d, err
	}
	d.Participants = participants
	return d, nil
}

type DecisionFilters struct {
	Tag           string
	StartDate     string
	EndDate       string
	ParticipantID int64
	Search        string
	Page          int
	Limit         int
}

func (r Repo) ListDecisions(ctx context.Context, f DecisionFilters) ([]domain.Decision, int, error) {
	var clauses []string
	var args []any
	if f.Tag != "" {
		// Tags are stored as a JSON array of strings.
		clauses = append(clauses, `d.tags LIKE '%"' || ? || '"%'`)
		args = append(args, f.Tag)
	}
	if f.StartDate != "" {
		clauses = append(clauses, "d.decision_date>=?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		clauses = append(clauses, "d.decision_date<=?")
		args = append(args, f.EndDate)
	}
	if f.ParticipantID > 0 {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM decision_participants p WHERE p.decision_id=d.id AND p.user_id=?)")
		args = append(args, f.ParticipantID)
	}
	if f.Search != "" {
		clauses = append(clauses, "(d.title LIKE '%' || ? || '%' OR d.description LIKE '%' || ? || '%')")
		args = append(args, f.Search, f.Search)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM decisions d `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + decisionCols + decisionFrom + where + ` ORDER BY d.decision_date DESC, d.id DESC`
	query, args = paginate(query, args, f.Page, f.Limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []domain.Decision
	for rows.Next() {
		d, err := scanDecision(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range res {
		participants, err := r.ListParticipants(ctx, res[i].ID)
		if err != nil {
			return nil, 0, err
		}
		res[i].Participants = participants
	}
	return res, total, nil
}

// DecisionsSince returns decisions with decision_date at or after the given
// date, newest first.
func (r Repo) DecisionsSince(ctx context.Context, date string) ([]domain.Decision, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+decisionCols+decisionFrom+`WHERE d.decision_date>=? ORDER BY d.decision_date DESC, d.id DESC`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Decision
	for rows.Next() {
		d, err := scanDecision(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) UpdateDecision(ctx context.Context, tx *sql.Tx, d domain.Decision) error {
	res, err := tx.ExecContext(ctx, `UPDATE decisions SET title=?, description=?, context=?, outcome=?, decision_date=?, tags=?, updated_at=? WHERE id=?`,
		d.Title, d.Description, d.Context, d.Outcome, d.DecisionDate, marshalTags(d.Tags), d.UpdatedAt, d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteDecision(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM decisions WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListParticipants(ctx context.Context, decisionID int64) ([]domain.UserRef, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT u.id,u.email,u.full_name FROM decision_participants p JOIN users u ON u.id=p.user_id WHERE p.decision_id=? ORDER BY u.full_name ASC`, decisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.UserRef
	for rows.Next() {
		var u domain.UserRef
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// ReplaceParticipants swaps the participant set of a decision.
func (r Repo) ReplaceParticipants(ctx context.Context, tx *sql.Tx, decisionID int64, userIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM decision_participants WHERE decision_id=?`, decisionID); err != nil {
		return err
	}
	for _, id := range userIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO decision_participants(decision_id,user_id) VALUES (?,?)`, decisionID, id); err != nil {
			return err
		}
	}
	return nil
}

const auditCols = `l.id,l.decision_id,l.changed_by_id,l.change_type,l.field_name,l.old_value,l.new_value,l.changed_at,u.id,u.email,u.full_name`

// ListAuditLog returns the audit trail for a decision in chronological order.
func (r Repo) ListAuditLog(ctx context.Context, decisionID int64) ([]domain.AuditLogEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+auditCols+` FROM decision_audit_log l JOIN users u ON u.id=l.changed_by_id WHERE l.decision_id=? ORDER BY l.changed_at ASC, l.id ASC`, decisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AuditLogEntry
	for rows.Next() {
		var e domain.AuditLogEntry
		var field, oldV, newV sql.NullString
		var byID sql.NullInt64
		var byEmail, byName sql.NullString
		if err := rows.Scan(&e.ID, &e.DecisionID, &e.ChangedByID, &e.ChangeType, &field, &oldV, &newV, &e.ChangedAt, &byID, &byEmail, &byName); err != nil {
			return nil, err
		}
		if field.Valid {
			e.FieldName = &field.String
		}
		if oldV.Valid {
			e.OldValue = &oldV.String
		}
		if newV.Valid {
			e.NewValue = &newV.String
		}
		e.ChangedBy = userRef(byID, byEmail, byName)
		res = append(res, e)
	}
	return res, rows.Err()
}
