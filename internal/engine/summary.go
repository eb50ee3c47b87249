package engine

import (
	"context"
	"time"

	"asyncops/internal/domain"
	"asyncops/internal/engine/policy"
	"asyncops/internal/repo"
)

// GenerateDailySummary builds and stores the snapshot for a date. When a
// summary for the date already exists and force is false, the stored row is
// returned untouched, generated_at included. The write is a single atomic
// replace so concurrent regenerations never interleave partial content.
func (e Engine) GenerateDailySummary(ctx context.Context, actor policy.Actor, date string, force bool) (domain.DailySummary, error) {
	if err := policy.GenerateSummary(actor); err != nil {
		return domain.DailySummary{}, err
	}
	if date == "" {
		date = e.now().UTC().Format("2006-01-02")
	}
	if !validDate(date) {
		return domain.DailySummary{}, policy.ValidationError{Field: "summary_date", Reason: "must be YYYY-MM-DD"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DailySummary{}, err
	}
	defer tx.Rollback()

	existing, err := e.Repo.GetSummaryByDateTx(ctx, tx, date)
	if err == nil && !force {
		return existing, nil
	}
	if err != nil && err != repo.ErrNotFound {
		return domain.DailySummary{}, err
	}

	now := e.now().UTC()
	content, err := e.buildSummaryContent(ctx, now)
	if err != nil {
		return domain.DailySummary{}, err
	}

	s := domain.DailySummary{
		SummaryDate:        date,
		Content:            content,
		StatusUpdatesCount: len(content.StatusUpdates),
		IncidentsCount:     len(content.Incidents),
		BlockersCount:      len(content.Blockers),
		DecisionsCount:     len(content.RecentDecisions),
		GeneratedAt:        now.Format(time.RFC3339),
		CreatedAt:          now.Format(time.RFC3339),
	}
	if existing.ID != 0 {
		s.CreatedAt = existing.CreatedAt
	}
	id, err := e.Repo.UpsertSummary(ctx, tx, s)
	if err != nil {
		return domain.DailySummary{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DailySummary{}, err
	}
	return e.Repo.GetSummary(ctx, id)
}

// buildSummaryContent assembles the read model: status updates from the
// last 24 hours, currently open incidents and active blockers regardless of
// age, and decisions dated within the last 7 days.
func (e Engine) buildSummaryContent(ctx context.Context, now time.Time) (domain.SummaryContent, error) {
	var content domain.SummaryContent

	since := now.Add(-24 * time.Hour).Format(time.RFC3339)
	updates, err := e.Repo.StatusUpdatesSince(ctx, since)
	if err != nil {
		return content, err
	}
	content.StatusUpdates = make([]domain.SummaryStatusUpdate, 0, len(updates))
	for _, s := range updates {
		author := ""
		if s.Author != nil {
			author = s.Author.FullName
		}
		content.StatusUpdates = append(content.StatusUpdates, domain.SummaryStatusUpdate{
			ID:        s.ID,
			Title:     s.Title,
			Author:    author,
			CreatedAt: s.CreatedAt,
		})
	}

	incidents, err := e.Repo.OpenIncidents(ctx)
	if err != nil {
		return content, err
	}
	content.Incidents = make([]domain.SummaryIncident, 0, len(incidents))
	critical := 0
	for _, in := range incidents {
		if in.Severity == "critical" {
			critical++
		}
		content.Incidents = append(content.Incidents, domain.SummaryIncident{
			ID:       in.ID,
			Title:    in.Title,
			Severity: in.Severity,
			Status:   in.Status,
		})
	}

	blockers, err := e.Repo.ActiveBlockers(ctx)
	if err != nil {
		return content, err
	}
	content.Blockers = make([]domain.SummaryBlocker, 0, len(blockers))
	for _, b := range blockers {
		content.Blockers = append(content.Blockers, domain.SummaryBlocker{
			ID:          b.ID,
			Description: b.Description,
			Status:      b.Status,
		})
	}

	weekAgo := now.AddDate(0, 0, -7).Format("2006-01-02")
	decisions, err := e.Repo.DecisionsSince(ctx, weekAgo)
	if err != nil {
		return content, err
	}
	content.RecentDecisions = make([]domain.SummaryDecision, 0, len(decisions))
	for _, d := range decisions {
		content.RecentDecisions = append(content.RecentDecisions, domain.SummaryDecision{
			ID:           d.ID,
			Title:        d.Title,
			DecisionDate: d.DecisionDate,
		})
	}

	content.Statistics = domain.SummaryStatistics{
		TotalStatusUpdates: len(content.StatusUpdates),
		CriticalIncidents:  critical,
		ActiveBlockers:     len(content.Blockers),
		DecisionsLast7Days: len(content.RecentDecisions),
	}
	return content, nil
}

func (e Engine) GetSummary(ctx context.Context, id int64) (domain.DailySummary, error) {
	return e.Repo.GetSummary(ctx, id)
}

func (e Engine) ListSummaries(ctx context.Context, f repo.SummaryFilters) ([]domain.DailySummary, int, error) {
	return e.Repo.ListSummaries(ctx, f)
}
