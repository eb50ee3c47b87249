package repo

import (
	"context"
	"database/sql"
	"strings"

	"asyncops/internal/domain"
)

const incidentCols = `i.id,i.reported_by_id,i.assigned_to_id,i.title,i.description,i.severity,i.status,i.resolution_notes,i.archived,i.created_at,i.updated_at,i.resolved_at,
r.id,r.email,r.full_name,a.id,a.email,a.full_name`

// severityRank orders incidents critical first in listings.
const severityRank = `CASE i.severity WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END`

func scanIncident(scan func(dest ...any) error) (domain.Incident, error) {
	var in domain.Incident
	var assignedTo sql.NullInt64
	var notes, resolvedAt sql.NullString
	var repID, asgID sql.NullInt64
	var repEmail, repName, asgEmail, asgName sql.NullString
	err := scan(&in.ID, &in.ReportedByID, &assignedTo, &in.Title, &in.Description, &in.Severity, &in.Status, &notes, &in.Archived,
		&in.CreatedAt, &in.UpdatedAt, &resolvedAt, &repID, &repEmail, &repName, &asgID, &asgEmail, &asgName)
	if err != nil {
		return in, err
	}
	if assignedTo.Valid {
		in.AssignedToID = &assignedTo.Int64
	}
	if notes.Valid {
		in.ResolutionNotes = &notes.String
	}
	if resolvedAt.Valid {
		in.ResolvedAt = &resolvedAt.String
	}
	in.ReportedBy = userRef(repID, repEmail, repName)
	in.AssignedTo = userRef(asgID, asgEmail, asgName)
	return in, nil
}

const incidentFrom = ` FROM incidents i JOIN users r ON r.id=i.reported_by_id LEFT JOIN users a ON a.id=i.assigned_to_id `

func (r Repo) InsertIncident(ctx context.Context, in domain.Incident) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO incidents(reported_by_id,assigned_to_id,title,description,severity,status,resolution_notes,archived,created_at,updated_at,resolved_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		in.ReportedByID, nullableInt64Ptr(in.AssignedToID), in.Title, in.Description, in.Severity, in.Status,
		nullableStringPtr(in.ResolutionNotes), in.Archived, in.CreatedAt, in.UpdatedAt, nullableStringPtr(in.ResolvedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetIncident(ctx context.Context, id int64) (domain.Incident, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+incidentCols+incidentFrom+`WHERE i.id=?`, id)
	in, err := scanIncident(row.Scan)
	if err == sql.ErrNoRows {
		return in, ErrNotFound
	}
	return in, err
}

type IncidentFilters struct {
	Status          string
	Severity        string
	AssignedToID    int64
	IncludeArchived bool
	Page            int
	Limit           int
}

func (r Repo) ListIncidents(ctx context.Context, f IncidentFilters) ([]domain.Incident, int, error) {
	var clauses []string
	var args []any
	if !f.IncludeArchived {
		clauses = append(clauses, "i.archived=0")
	}
	if f.Status != "" {
		clauses = append(clauses, "i.status=?")
		args = append(args, f.Status)
	}
	if f.Severity != "" {
		clauses = append(clauses, "i.severity=?")
		args = append(args, f.Severity)
	}
	if f.AssignedToID > 0 {
		clauses = append(clauses, "i.assigned_to_id=?")
		args = append(args, f.AssignedToID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM incidents i `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + incidentCols + incidentFrom + where + ` ORDER BY ` + severityRank + `, i.created_at DESC, i.id DESC`
	query, args = paginate(query, args, f.Page, f.Limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []domain.Incident
	for rows.Next() {
		in, err := scanIncident(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, in)
	}
	return res, total, rows.Err()
}

// OpenIncidents returns unarchived incidents still in open or in_progress,
// most severe first.
func (r Repo) OpenIncidents(ctx context.Context) ([]domain.Incident, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+incidentCols+incidentFrom+`WHERE i.archived=0 AND i.status IN ('open','in_progress') ORDER BY `+severityRank+`, i.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Incident
	for rows.Next() {
		in, err := scanIncident(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, in)
	}
	return res, rows.Err()
}

func (r Repo) UpdateIncident(ctx context.Context, tx *sql.Tx, in domain.Incident) error {
	res, err := tx.ExecContext(ctx, `UPDATE incidents SET assigned_to_id=?, title=?, description=?, severity=?, status=?, resolution_notes=?, archived=?, updated_at=?, resolved_at=? WHERE id=?`,
		nullableInt64Ptr(in.AssignedToID), in.Title, in.Description, in.Severity, in.Status,
		nullableStringPtr(in.ResolutionNotes), in.Archived, in.UpdatedAt, nullableStringPtr(in.ResolvedAt), in.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteIncident(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM incidents WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
