package engine_test

import (
	"errors"
	"testing"
	"time"

	"asyncops/internal/domain"
	"asyncops/internal/engine"
	"asyncops/internal/engine/policy"
	"asyncops/internal/repo"
)

func TestDailySummaryContents(t *testing.T) {
	env := newTestEnv(t)
	admin := env.mustUser(t, "admin@example.com", "Admin", domain.RoleAdmin)
	member := env.mustUser(t, "member@example.com", "Member", "")
	actor := asActor(member)

	// A status update older than 24 hours stays out of the summary.
	*env.Clock = env.Clock.Add(-30 * time.Hour)
	if _, err := env.Engine.CreateStatusUpdate(env.Ctx, actor, engine.StatusUpdateCreateOptions{
		Title: "Stale update", Content: "old news",
	}); err != nil {
		t.Fatalf("old update: %v", err)
	}
	*env.Clock = env.Clock.Add(30 * time.Hour)
	fresh, err := env.Engine.CreateStatusUpdate(env.Ctx, actor, engine.StatusUpdateCreateOptions{
		Title: "Fresh update", Content: "news",
	})
	if err != nil {
		t.Fatalf("fresh update: %v", err)
	}

	critical, err := env.Engine.CreateIncident(env.Ctx, actor, engine.IncidentCreateOptions{
		Title: "Database down", Severity: "critical",
	})
	if err != nil {
		t.Fatalf("critical incident: %v", err)
	}
	low, err := env.Engine.CreateIncident(env.Ctx, actor, engine.IncidentCreateOptions{
		Title: "Typo on dashboard", Severity: "low",
	})
	if err != nil {
		t.Fatalf("low incident: %v", err)
	}
	resolved, err := env.Engine.CreateIncident(env.Ctx, actor, engine.IncidentCreateOptions{
		Title: "Fixed already", Severity: "critical",
	})
	if err != nil {
		t.Fatalf("resolved incident: %v", err)
	}
	if _, err := env.Engine.SetIncidentStatus(env.Ctx, actor, resolved.ID, domain.IncidentResolved, nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	archived, err := env.Engine.CreateIncident(env.Ctx, actor, engine.IncidentCreateOptions{
		Title: "Archived critical", Severity: "critical",
	})
	if err != nil {
		t.Fatalf("archived incident: %v", err)
	}
	if _, err := env.Engine.ArchiveIncident(env.Ctx, actor, archived.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	active, err := env.Engine.CreateBlocker(env.Ctx, actor, engine.BlockerCreateOptions{
		Description: "Waiting on vendor", Impact: "Integration stalled",
	})
	if err != nil {
		t.Fatalf("active blocker: %v", err)
	}
	done, err := env.Engine.CreateBlocker(env.Ctx, actor, engine.BlockerCreateOptions{
		Description: "Solved", Impact: "None now",
	})
	if err != nil {
		t.Fatalf("resolved blocker: %v", err)
	}
	if _, err := env.Engine.ResolveBlocker(env.Ctx, actor, done.ID, nil); err != nil {
		t.Fatalf("resolve blocker: %v", err)
	}

	today := env.Clock.Format("2006-01-02")
	recentDate := env.Clock.AddDate(0, 0, -3).Format("2006-01-02")
	oldDate := env.Clock.AddDate(0, 0, -10).Format("2006-01-02")
	if _, err := env.Engine.CreateDecision(env.Ctx, actor, engine.DecisionCreateOptions{
		Title: "Recent decision", Outcome: "yes", DecisionDate: recentDate,
	}); err != nil {
		t.Fatalf("recent decision: %v", err)
	}
	if _, err := env.Engine.CreateDecision(env.Ctx, actor, engine.DecisionCreateOptions{
		Title: "Old decision", Outcome: "yes", DecisionDate: oldDate,
	}); err != nil {
		t.Fatalf("old decision: %v", err)
	}

	var fe policy.ForbiddenError
	if _, err := env.Engine.GenerateDailySummary(env.Ctx, actor, today, false); !errors.As(err, &fe) {
		t.Fatalf("member generate: %v", err)
	}

	s, err := env.Engine.GenerateDailySummary(env.Ctx, asActor(admin), today, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if s.SummaryDate != today {
		t.Fatalf("summary date: %q", s.SummaryDate)
	}
	if len(s.Content.StatusUpdates) != 1 || s.Content.StatusUpdates[0].ID != fresh.ID {
		t.Fatalf("status updates: %+v", s.Content.StatusUpdates)
	}
	if len(s.Content.Incidents) != 2 {
		t.Fatalf("incidents: %+v", s.Content.Incidents)
	}
	// Severity ranking puts critical before low.
	if s.Content.Incidents[0].ID != critical.ID || s.Content.Incidents[1].ID != low.ID {
		t.Fatalf("incident order: %+v", s.Content.Incidents)
	}
	if len(s.Content.Blockers) != 1 || s.Content.Blockers[0].ID != active.ID {
		t.Fatalf("blockers: %+v", s.Content.Blockers)
	}
	if len(s.Content.RecentDecisions) != 1 || s.Content.RecentDecisions[0].Title != "Recent decision" {
		t.Fatalf("decisions: %+v", s.Content.RecentDecisions)
	}
	stats := s.Content.Statistics
	if stats.TotalStatusUpdates != 1 || stats.CriticalIncidents != 1 || stats.ActiveBlockers != 1 || stats.DecisionsLast7Days != 1 {
		t.Fatalf("statistics: %+v", stats)
	}
	if s.StatusUpdatesCount != 1 || s.IncidentsCount != 2 || s.BlockersCount != 1 || s.DecisionsCount != 1 {
		t.Fatalf("counts: %+v", s)
	}
}

func TestDailySummaryIdempotency(t *testing.T) {
	env := newTestEnv(t)
	admin := env.mustUser(t, "admin@example.com", "Admin", domain.RoleAdmin)
	member := env.mustUser(t, "member@example.com", "Member", "")
	today := env.Clock.Format("2006-01-02")

	first, err := env.Engine.GenerateDailySummary(env.Ctx, asActor(admin), today, false)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}

	// New data plus a later clock, but force=false returns the stored row.
	*env.Clock = env.Clock.Add(time.Hour)
	if _, err := env.Engine.CreateStatusUpdate(env.Ctx, asActor(member), engine.StatusUpdateCreateOptions{
		Title: "Late update", Content: "after the first run",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, err := env.Engine.GenerateDailySummary(env.Ctx, asActor(admin), today, false)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if again.ID != first.ID || again.GeneratedAt != first.GeneratedAt {
		t.Fatalf("force=false regenerated: first=%+v again=%+v", first, again)
	}
	if again.StatusUpdatesCount != 0 {
		t.Fatalf("stored summary changed: %+v", again)
	}

	// force=true rebuilds in place: same row, new content and timestamp,
	// original created_at.
	forced, err := env.Engine.GenerateDailySummary(env.Ctx, asActor(admin), today, true)
	if err != nil {
		t.Fatalf("forced generate: %v", err)
	}
	if forced.ID != first.ID {
		t.Fatalf("forced run made a new row: %d vs %d", forced.ID, first.ID)
	}
	if forced.GeneratedAt == first.GeneratedAt {
		t.Fatal("generated_at not refreshed")
	}
	if forced.CreatedAt != first.CreatedAt {
		t.Fatalf("created_at changed: %q vs %q", forced.CreatedAt, first.CreatedAt)
	}
	if forced.StatusUpdatesCount != 1 {
		t.Fatalf("forced content: %+v", forced)
	}

	items, total, err := env.Engine.ListSummaries(env.Ctx, repo.SummaryFilters{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("one row per date expected: total=%d", total)
	}
}

func TestSummaryListDateRange(t *testing.T) {
	env := newTestEnv(t)
	admin := env.mustUser(t, "admin@example.com", "Admin", domain.RoleAdmin)

	for _, date := range []string{"2026-02-28", "2026-03-01", "2026-03-02"} {
		if _, err := env.Engine.GenerateDailySummary(env.Ctx, asActor(admin), date, false); err != nil {
			t.Fatalf("generate %s: %v", date, err)
		}
	}

	items, total, err := env.Engine.ListSummaries(env.Ctx, repo.SummaryFilters{
		StartDate: "2026-03-01", EndDate: "2026-03-01", Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].SummaryDate != "2026-03-01" {
		t.Fatalf("range: total=%d items=%+v", total, items)
	}

	items, total, err = env.Engine.ListSummaries(env.Ctx, repo.SummaryFilters{
		StartDate: "2026-03-01", Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("list from: %v", err)
	}
	if total != 2 || items[0].SummaryDate != "2026-03-02" {
		t.Fatalf("open-ended range, newest first: total=%d items=%+v", total, items)
	}
}

func TestSummarySnapshotOrdersUpdatesNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	admin := env.mustUser(t, "admin@example.com", "Admin", domain.RoleAdmin)
	member := env.mustUser(t, "member@example.com", "Member", "")

	first, err := env.Engine.CreateStatusUpdate(env.Ctx, asActor(member), engine.StatusUpdateCreateOptions{
		Title: "Morning", Content: "c",
	})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	*env.Clock = env.Clock.Add(time.Hour)
	second, err := env.Engine.CreateStatusUpdate(env.Ctx, asActor(member), engine.StatusUpdateCreateOptions{
		Title: "Afternoon", Content: "c",
	})
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	s, err := env.Engine.GenerateDailySummary(env.Ctx, asActor(admin), "", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(s.Content.StatusUpdates) != 2 {
		t.Fatalf("updates: %+v", s.Content.StatusUpdates)
	}
	if s.Content.StatusUpdates[0].ID != second.ID || s.Content.StatusUpdates[1].ID != first.ID {
		t.Fatalf("snapshot order: %+v", s.Content.StatusUpdates)
	}
}
