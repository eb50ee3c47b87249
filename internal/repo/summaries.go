package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"asyncops/internal/domain"
)

func scanSummary(scan func(dest ...any) error) (domain.DailySummary, error) {
	var s domain.DailySummary
	var content string
	err := scan(&s.ID, &s.SummaryDate, &content, &s.StatusUpdatesCount, &s.IncidentsCount, &s.BlockersCount, &s.DecisionsCount, &s.GeneratedAt, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(content), &s.Content); err != nil {
		return s, err
	}
	return s, nil
}

const summaryCols = `id,summary_date,content,status_updates_count,incidents_count,blockers_count,decisions_count,generated_at,created_at`

func (r Repo) GetSummary(ctx context.Context, id int64) (domain.DailySummary, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+summaryCols+` FROM daily_summaries WHERE id=?`, id)
	s, err := scanSummary(row.Scan)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) GetSummaryByDateTx(ctx context.Context, tx *sql.Tx, date string) (domain.DailySummary, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+summaryCols+` FROM daily_summaries WHERE summary_date=?`, date)
	s, err := scanSummary(row.Scan)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

type SummaryFilters struct {
	StartDate string
	EndDate   string
	Page      int
	Limit     int
}

func (r Repo) ListSummaries(ctx context.Context, f SummaryFilters) ([]domain.DailySummary, int, error) {
	var clauses []string
	var args []any
	if f.StartDate != "" {
		clauses = append(clauses, "summary_date>=?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		clauses = append(clauses, "summary_date<=?")
		args = append(args, f.EndDate)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM daily_summaries `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + summaryCols + ` FROM daily_summaries ` + where + ` ORDER BY summary_date DESC`
	query, args = paginate(query, args, f.Page, f.Limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []domain.DailySummary
	for rows.Next() {
		s, err := scanSummary(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, s)
	}
	return res, total, rows.Err()
}

// UpsertSummary inserts or replaces the summary row for its date. The row id
// is stable across regeneration.
func (r Repo) UpsertSummary(ctx context.Context, tx *sql.Tx, s domain.DailySummary) (int64, error) {
	content, err := json.Marshal(s.Content)
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO daily_summaries(summary_date,content,status_updates_count,incidents_count,blockers_count,decisions_count,generated_at,created_at)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(summary_date) DO UPDATE SET content=excluded.content,
	status_updates_count=excluded.status_updates_count,
	incidents_count=excluded.incidents_count,
	blockers_count=excluded.blockers_count,
	decisions_count=excluded.decisions_count,
	generated_at=excluded.generated_at`,
		s.SummaryDate, string(content), s.StatusUpdatesCount, s.IncidentsCount, s.BlockersCount, s.DecisionsCount, s.GeneratedAt, s.CreatedAt)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM daily_summaries WHERE summary_date=?`, s.SummaryDate).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
