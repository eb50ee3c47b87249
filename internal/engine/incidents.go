package engine

import (
	"context"
	"strings"

	"asyncops/internal/domain"
	"asyncops/internal/engine/policy"
	"asyncops/internal/repo"
)

type IncidentCreateOptions struct {
	Title        string
	Description  string
	Severity     string
	AssignedToID *int64
}

func validSeverity(s string) bool {
	switch s {
	case "low", "medium", "high", "critical":
		return true
	}
	return false
}

func validIncidentStatus(s string) bool {
	switch s {
	case domain.IncidentOpen, domain.IncidentInProgress, domain.IncidentResolved, domain.IncidentClosed:
		return true
	}
	return false
}

func (e Engine) CreateIncident(ctx context.Context, actor policy.Actor, opts IncidentCreateOptions) (domain.Incident, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Incident{}, policy.ValidationError{Field: "title", Reason: "required"}
	}
	if !validSeverity(opts.Severity) {
		return domain.Incident{}, policy.ValidationError{Field: "severity", Reason: "must be one of low, medium, high, critical"}
	}
	if opts.AssignedToID != nil {
		if _, err := e.Repo.GetUser(ctx, *opts.AssignedToID); err != nil {
			return domain.Incident{}, err
		}
	}
	now := e.nowRFC3339()
	in := domain.Incident{
		ReportedByID: actor.ID,
		AssignedToID: opts.AssignedToID,
		Title:        strings.TrimSpace(opts.Title),
		Description:  opts.Description,
		Severity:     opts.Severity,
		Status:       domain.IncidentOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := e.Repo.InsertIncident(ctx, in)
	if err != nil {
		return domain.Incident{}, err
	}
	return e.Repo.GetIncident(ctx, id)
}

type IncidentUpdateOptions struct {
	Title       *string
	Description *string
	Severity    *string
}

func (e Engine) UpdateIncident(ctx context.Context, actor policy.Actor, id int64, opts IncidentUpdateOptions) (domain.Incident, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Incident{}, err
	}
	defer tx.Rollback()

	in, err := e.Repo.GetIncident(ctx, id)
	if err != nil {
		return domain.Incident{}, err
	}
	if err := policy.IncidentEdit(in); err != nil {
		return domain.Incident{}, err
	}
	if opts.Title != nil {
		if strings.TrimSpace(*opts.Title) == "" {
			return domain.Incident{}, policy.ValidationError{Field: "title", Reason: "required"}
		}
		in.Title = strings.TrimSpace(*opts.Title)
	}
	if opts.Description != nil {
		in.Description = *opts.Description
	}
	if opts.Severity != nil {
		if !validSeverity(*opts.Severity) {
			return domain.Incident{}, policy.ValidationError{Field: "severity", Reason: "must be one of low, medium, high, critical"}
		}
		in.Severity = *opts.Severity
	}
	in.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateIncident(ctx, tx, in); err != nil {
		return domain.Incident{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Incident{}, err
	}
	return e.Repo.GetIncident(ctx, id)
}

// SetIncidentStatus applies a status transition. Re-setting the current
// status is an allowed idempotent write. resolved_at is stamped when the
// incident enters resolved or closed, and cleared when it leaves.
func (e Engine) SetIncidentStatus(ctx context.Context, actor policy.Actor, id int64, status string, resolutionNotes *string) (domain.Incident, error) {
	if !validIncidentStatus(status) {
		return domain.Incident{}, policy.ValidationError{Field: "status", Reason: "must be one of open, in_progress, resolved, closed"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Incident{}, err
	}
	defer tx.Rollback()

	in, err := e.Repo.GetIncident(ctx, id)
	if err != nil {
		return domain.Incident{}, err
	}
	if err := policy.IncidentSetStatus(in); err != nil {
		return domain.Incident{}, err
	}
	settled := status == domain.IncidentResolved || status == domain.IncidentClosed
	if settled {
		if in.ResolvedAt == nil {
			ts := e.nowRFC3339()
			in.ResolvedAt = &ts
		}
	} else {
		in.ResolvedAt = nil
	}
	if resolutionNotes != nil {
		in.ResolutionNotes = resolutionNotes
	}
	in.Status = status
	in.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateIncident(ctx, tx, in); err != nil {
		return domain.Incident{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Incident{}, err
	}
	return e.Repo.GetIncident(ctx, id)
}

// AssignIncident sets or clears the assignee. A nil userID unassigns.
func (e Engine) AssignIncident(ctx context.Context, actor policy.Actor, id int64, userID *int64) (domain.Incident, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Incident{}, err
	}
	defer tx.Rollback()

	in, err := e.Repo.GetIncident(ctx, id)
	if err != nil {
		return domain.Incident{}, err
	}
	if err := policy.IncidentAssign(in); err != nil {
		return domain.Incident{}, err
	}
	if userID != nil {
		if _, err := e.Repo.GetUser(ctx, *userID); err != nil {
			return domain.Incident{}, err
		}
	}
	in.AssignedToID = userID
	in.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateIncident(ctx, tx, in); err != nil {
		return domain.Incident{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Incident{}, err
	}
	return e.Repo.GetIncident(ctx, id)
}

func (e Engine) setIncidentArchived(ctx context.Context, id int64, archived bool) (domain.Incident, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Incident{}, err
	}
	defer tx.Rollback()

	in, err := e.Repo.GetIncident(ctx, id)
	if err != nil {
		return domain.Incident{}, err
	}
	if archived {
		err = policy.Archive("incident", in.ID, in.Archived)
	} else {
		err = policy.Unarchive("incident", in.ID, in.Archived)
	}
	if err != nil {
		return domain.Incident{}, err
	}
	in.Archived = archived
	in.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateIncident(ctx, tx, in); err != nil {
		return domain.Incident{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Incident{}, err
	}
	return e.Repo.GetIncident(ctx, id)
}

func (e Engine) ArchiveIncident(ctx context.Context, actor policy.Actor, id int64) (domain.Incident, error) {
	return e.setIncidentArchived(ctx, id, true)
}

func (e Engine) UnarchiveIncident(ctx context.Context, actor policy.Actor, id int64) (domain.Incident, error) {
	return e.setIncidentArchived(ctx, id, false)
}

// DeleteIncident permanently removes an archived incident. Admin only.
func (e Engine) DeleteIncident(ctx context.Context, actor policy.Actor, id int64) error {
	in, err := e.Repo.GetIncident(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Delete("incident", in.ID, in.Archived, actor); err != nil {
		return err
	}
	return e.Repo.DeleteIncident(ctx, id)
}

func (e Engine) GetIncident(ctx context.Context, id int64) (domain.Incident, error) {
	return e.Repo.GetIncident(ctx, id)
}

func (e Engine) ListIncidents(ctx context.Context, f repo.IncidentFilters) ([]domain.Incident, int, error) {
	return e.Repo.ListIncidents(ctx, f)
}
