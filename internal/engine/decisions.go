package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"asyncops/internal/audit"
	"asyncops/internal/domain"
	"asyncops/internal/engine/policy"
	"asyncops/internal/repo"
)

type DecisionCreateOptions struct {
	Title          string
	Description    string
	Context        string
	Outcome        string
	DecisionDate   string
	Tags           []string
	ParticipantIDs []int64
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func (e Engine) CreateDecision(ctx context.Context, actor policy.Actor, opts DecisionCreateOptions) (domain.Decision, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Decision{}, policy.ValidationError{Field: "title", Reason: "required"}
	}
	if strings.TrimSpace(opts.Outcome) == "" {
		return domain.Decision{}, policy.ValidationError{Field: "outcome", Reason: "required"}
	}
	if !validDate(opts.DecisionDate) {
		return domain.Decision{}, policy.ValidationError{Field: "decision_date", Reason: "must be YYYY-MM-DD"}
	}
	for _, id := range opts.ParticipantIDs {
		if _, err := e.Repo.GetUser(ctx, id); err != nil {
			return domain.Decision{}, err
		}
	}
	now := e.nowRFC3339()
	d := domain.Decision{
		CreatedByID:  actor.ID,
		Title:        strings.TrimSpace(opts.Title),
		Description:  opts.Description,
		Context:      opts.Context,
		Outcome:      opts.Outcome,
		DecisionDate: opts.DecisionDate,
		Tags:         normalizeTags(opts.Tags),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Decision{}, err
	}
	defer tx.Rollback()

	id, err := e.Repo.InsertDecision(ctx, tx, d)
	if err != nil {
		return domain.Decision{}, err
	}
	if err := e.Repo.ReplaceParticipants(ctx, tx, id, opts.ParticipantIDs); err != nil {
		return domain.Decision{}, err
	}
	if err := e.Audit.Append(ctx, tx, audit.Entry{
		DecisionID:  id,
		ChangedByID: actor.ID,
		ChangeType:  domain.ChangeCreated,
	}); err != nil {
		return domain.Decision{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Decision{}, err
	}
	return e.Repo.GetDecision(ctx, id)
}

type DecisionUpdateOptions struct {
	Title          *string
	Description    *string
	Context        *string
	Outcome        *string
	DecisionDate   *string
	Tags           []string
	ParticipantIDs []int64
}

func renderTags(tags []string) string {
	return strings.Join(tags, ", ")
}

func renderParticipants(refs []domain.UserRef) string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, strconv.FormatInt(r.ID, 10))
	}
	return strings.Join(ids, ", ")
}

func renderParticipantIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ", ")
}

// UpdateDecision applies field edits and appends one audit entry per changed
// field, all in one transaction. Only the creator or an admin may edit.
func (e Engine) UpdateDecision(ctx context.Context, actor policy.Actor, id int64, opts DecisionUpdateOptions) (domain.Decision, error) {
	d, err := e.Repo.GetDecision(ctx, id)
	if err != nil {
		return domain.Decision{}, err
	}
	if !policy.CanModifyDecision(d, actor) {
		return domain.Decision{}, policy.ForbiddenError{Action: "edit this decision"}
	}

	type fieldChange struct {
		name     string
		old, new string
	}
	var changes []fieldChange
	record := func(name, oldV, newV string) {
		if oldV != newV {
			changes = append(changes, fieldChange{name: name, old: oldV, new: newV})
		}
	}

	if opts.Title != nil {
		if strings.TrimSpace(*opts.Title) == "" {
			return domain.Decision{}, policy.ValidationError{Field: "title", Reason: "required"}
		}
		record("title", d.Title, strings.TrimSpace(*opts.Title))
		d.Title = strings.TrimSpace(*opts.Title)
	}
	if opts.Description != nil {
		record("description", d.Description, *opts.Description)
		d.Description = *opts.Description
	}
	if opts.Context != nil {
		record("context", d.Context, *opts.Context)
		d.Context = *opts.Context
	}
	if opts.Outcome != nil {
		if strings.TrimSpace(*opts.Outcome) == "" {
			return domain.Decision{}, policy.ValidationError{Field: "outcome", Reason: "required"}
		}
		record("outcome", d.Outcome, *opts.Outcome)
		d.Outcome = *opts.Outcome
	}
	if opts.DecisionDate != nil {
		if !validDate(*opts.DecisionDate) {
			return domain.Decision{}, policy.ValidationError{Field: "decision_date", Reason: "must be YYYY-MM-DD"}
		}
		record("decision_date", d.DecisionDate, *opts.DecisionDate)
		d.DecisionDate = *opts.DecisionDate
	}
	if opts.Tags != nil {
		normalized := normalizeTags(opts.Tags)
		record("tags", renderTags(d.Tags), renderTags(normalized))
		d.Tags = normalized
	}
	replaceParticipants := false
	if opts.ParticipantIDs != nil {
		for _, pid := range opts.ParticipantIDs {
			if _, err := e.Repo.GetUser(ctx, pid); err != nil {
				return domain.Decision{}, err
			}
		}
		record("participants", renderParticipants(d.Participants), renderParticipantIDs(opts.ParticipantIDs))
		replaceParticipants = true
	}
	d.UpdatedAt = e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Decision{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateDecision(ctx, tx, d); err != nil {
		return domain.Decision{}, err
	}
	if replaceParticipants {
		if err := e.Repo.ReplaceParticipants(ctx, tx, id, opts.ParticipantIDs); err != nil {
			return domain.Decision{}, err
		}
	}
	for _, c := range changes {
		c := c
		if err := e.Audit.Append(ctx, tx, audit.Entry{
			DecisionID:  id,
			ChangedByID: actor.ID,
			ChangeType:  domain.ChangeUpdated,
			FieldName:   &c.name,
			OldValue:    &c.old,
			NewValue:    &c.new,
		}); err != nil {
			return domain.Decision{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Decision{}, err
	}
	return e.Repo.GetDecision(ctx, id)
}

// DeleteDecision removes a decision after appending a deleted audit entry.
// The trail outlives the row.
func (e Engine) DeleteDecision(ctx context.Context, actor policy.Actor, id int64) error {
	d, err := e.Repo.GetDecision(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanModifyDecision(d, actor) {
		return policy.ForbiddenError{Action: "delete this decision"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Audit.Append(ctx, tx, audit.Entry{
		DecisionID:  id,
		ChangedByID: actor.ID,
		ChangeType:  domain.ChangeDeleted,
	}); err != nil {
		return err
	}
	if err := e.Repo.DeleteDecision(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// DecisionAuditTrail returns audit entries oldest first, so the created
// entry leads the timeline. The trail stays readable after the decision is
// deleted; only an id that never had entries is a miss.
func (e Engine) DecisionAuditTrail(ctx context.Context, id int64) ([]domain.AuditLogEntry, error) {
	entries, err := e.Repo.ListAuditLog(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		if _, err := e.Repo.GetDecision(ctx, id); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (e Engine) GetDecision(ctx context.Context, id int64) (domain.Decision, error) {
	return e.Repo.GetDecision(ctx, id)
}

func (e Engine) ListDecisions(ctx context.Context, f repo.DecisionFilters) ([]domain.Decision, int, error) {
	return e.Repo.ListDecisions(ctx, f)
}
