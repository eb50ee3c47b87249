package repo

import (
	"context"
	"database/sql"
	"strings"

	"asyncops/internal/domain"
)

const statusUpdateCols = `s.id,s.user_id,s.title,s.content,s.tags,s.created_at,s.updated_at,u.id,u.email,u.full_name`

func scanStatusUpdate(scan func(dest ...any) error) (domain.StatusUpdate, error) {
	var s domain.StatusUpdate
	var tags sql.NullString
	var authorID sql.NullInt64
	var authorEmail, authorName sql.NullString
	err := scan(&s.ID, &s.UserID, &s.Title, &s.Content, &tags, &s.CreatedAt, &s.UpdatedAt, &authorID, &authorEmail, &authorName)
	if err != nil {
		return s, err
	}
	s.Tags = unmarshalTags(tags)
	s.Author = userRef(authorID, authorEmail, authorName)
	return s, nil
}

func (r Repo) InsertStatusUpdate(ctx context.Context, s domain.StatusUpdate) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO status_updates(user_id,title,content,tags,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		s.UserID, s.Title, s.Content, marshalTags(s.Tags), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetStatusUpdate(ctx context.Context, id int64) (domain.StatusUpdate, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+statusUpdateCols+` FROM status_updates s JOIN users u ON u.id=s.user_id WHERE s.id=?`, id)
	s, err := scanStatusUpdate(row.Scan)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

type StatusUpdateFilters struct {
	UserID    int64
	StartDate string
	EndDate   string
	Page      int
	Limit     int
}

func (r Repo) ListStatusUpdates(ctx context.Context, f StatusUpdateFilters) ([]domain.StatusUpdate, int, error) {
	var clauses []string
	var args []any
	if f.UserID > 0 {
		clauses = append(clauses, "s.user_id=?")
		args = append(args, f.UserID)
	}
	// RFC3339 UTC strings compare correctly as text.
	if f.StartDate != "" {
		clauses = append(clauses, "s.created_at>=?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		clauses = append(clauses, "s.created_at<=?")
		args = append(args, f.EndDate)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM status_updates s `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + statusUpdateCols + ` FROM status_updates s JOIN users u ON u.id=s.user_id ` + where + ` ORDER BY s.created_at DESC, s.id DESC`
	query, args = paginate(query, args, f.Page, f.Limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []domain.StatusUpdate
	for rows.Next() {
		s, err := scanStatusUpdate(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, s)
	}
	return res, total, rows.Err()
}

// StatusUpdatesSince returns updates created at or after the given instant,
// newest first.
func (r Repo) StatusUpdatesSince(ctx context.Context, since string) ([]domain.StatusUpdate, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+statusUpdateCols+` FROM status_updates s JOIN users u ON u.id=s.user_id WHERE s.created_at>=? ORDER BY s.created_at DESC, s.id DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StatusUpdate
	for rows.Next() {
		s, err := scanStatusUpdate(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) UpdateStatusUpdate(ctx context.Context, s domain.StatusUpdate) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE status_updates SET title=?, content=?, tags=?, updated_at=? WHERE id=?`,
		s.Title, s.Content, marshalTags(s.Tags), s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteStatusUpdate(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM status_updates WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func paginate(query string, args []any, page, limit int) (string, []any) {
	if limit <= 0 {
		return query, args
	}
	if page < 1 {
		page = 1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)
	return query, args
}
