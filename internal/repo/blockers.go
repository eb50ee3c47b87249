package repo

import (
	"context"
	"database/sql"
	"strings"

	"asyncops/internal/domain"
)

const blockerCols = `b.id,b.reported_by_id,b.description,b.impact,b.status,b.resolution_notes,b.archived,b.related_status_id,b.related_incident_id,b.created_at,b.updated_at,b.resolved_at,
u.id,u.email,u.full_name`

func scanBlocker(scan func(dest ...any) error) (domain.Blocker, error) {
	var b domain.Blocker
	var notes, resolvedAt sql.NullString
	var relStatus, relIncident sql.NullInt64
	var repID sql.NullInt64
	var repEmail, repName sql.NullString
	err := scan(&b.ID, &b.ReportedByID, &b.Description, &b.Impact, &b.Status, &notes, &b.Archived,
		&relStatus, &relIncident, &b.CreatedAt, &b.UpdatedAt, &resolvedAt, &repID, &repEmail, &repName)
	if err != nil {
		return b, err
	}
	if notes.Valid {
		b.ResolutionNotes = &notes.String
	}
	if resolvedAt.Valid {
		b.ResolvedAt = &resolvedAt.String
	}
	if relStatus.Valid {
		b.RelatedStatusID = &relStatus.Int64
	}
	if relIncident.Valid {
		b.RelatedIncidentID = &relIncident.Int64
	}
	b.ReportedBy = userRef(repID, repEmail, repName)
	return b, nil
}

const blockerFrom = ` FROM blockers b JOIN users u ON u.id=b.reported_by_id `

func (r Repo) InsertBlocker(ctx context.Context, b domain.Blocker) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO blockers(reported_by_id,description,impact,status,resolution_notes,archived,related_status_id,related_incident_id,created_at,updated_at,resolved_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		b.ReportedByID, b.Description, b.Impact, b.Status, nullableStringPtr(b.ResolutionNotes), b.Archived,
		nullableInt64Ptr(b.RelatedStatusID), nullableInt64Ptr(b.RelatedIncidentID), b.CreatedAt, b.UpdatedAt, nullableStringPtr(b.ResolvedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetBlocker(ctx context.Context, id int64) (domain.Blocker, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+blockerCols+blockerFrom+`WHERE b.id=?`, id)
	b, err := scanBlocker(row.Scan)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	return b, err
}

type BlockerFilters struct {
	Status          string
	IncludeArchived bool
	Page            int
	Limit           int
}

func (r Repo) ListBlockers(ctx context.Context, f BlockerFilters) ([]domain.Blocker, int, error) {
	var clauses []string
	var args []any
	if !f.IncludeArchived {
		clauses = append(clauses, "b.archived=0")
	}
	if f.Status != "" {
		clauses = append(clauses, "b.status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM blockers b `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	// Active blockers surface before resolved ones.
	query := `SELECT ` + blockerCols + blockerFrom + where + ` ORDER BY CASE b.status WHEN 'active' THEN 0 ELSE 1 END, b.created_at DESC, b.id DESC`
	query, args = paginate(query, args, f.Page, f.Limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []domain.Blocker
	for rows.Next() {
		b, err := scanBlocker(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, b)
	}
	return res, total, rows.Err()
}

func (r Repo) ActiveBlockers(ctx context.Context) ([]domain.Blocker, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+blockerCols+blockerFrom+`WHERE b.archived=0 AND b.status='active' ORDER BY b.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Blocker
	for rows.Next() {
		b, err := scanBlocker(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

func (r Repo) UpdateBlocker(ctx context.Context, tx *sql.Tx, b domain.Blocker) error {
	res, err := tx.ExecContext(ctx, `UPDATE blockers SET description=?, impact=?, status=?, resolution_notes=?, archived=?, related_status_id=?, related_incident_id=?, updated_at=?, resolved_at=? WHERE id=?`,
		b.Description, b.Impact, b.Status, nullableStringPtr(b.ResolutionNotes), b.Archived,
		nullableInt64Ptr(b.RelatedStatusID), nullableInt64Ptr(b.RelatedIncidentID), b.UpdatedAt, nullableStringPtr(b.ResolvedAt), b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteBlocker(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM blockers WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
