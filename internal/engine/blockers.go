package engine

import (
	"context"
	"strings"

	"asyncops/internal/domain"
	"asyncops/internal/engine/policy"
	"asyncops/internal/repo"
)

type BlockerCreateOptions struct {
	Description       string
	Impact            string
	RelatedStatusID   *int64
	RelatedIncidentID *int64
}

func (e Engine) CreateBlocker(ctx context.Context, actor policy.Actor, opts BlockerCreateOptions) (domain.Blocker, error) {
	if strings.TrimSpace(opts.Description) == "" {
		return domain.Blocker{}, policy.ValidationError{Field: "description", Reason: "required"}
	}
	if strings.TrimSpace(opts.Impact) == "" {
		return domain.Blocker{}, policy.ValidationError{Field: "impact", Reason: "required"}
	}
	if opts.RelatedStatusID != nil {
		if _, err := e.Repo.GetStatusUpdate(ctx, *opts.RelatedStatusID); err != nil {
			return domain.Blocker{}, err
		}
	}
	if opts.RelatedIncidentID != nil {
		if _, err := e.Repo.GetIncident(ctx, *opts.RelatedIncidentID); err != nil {
			return domain.Blocker{}, err
		}
	}
	now := e.nowRFC3339()
	b := domain.Blocker{
		ReportedByID:      actor.ID,
		Description:       strings.TrimSpace(opts.Description),
		Impact:            strings.TrimSpace(opts.Impact),
		Status:            domain.BlockerActive,
		RelatedStatusID:   opts.RelatedStatusID,
		RelatedIncidentID: opts.RelatedIncidentID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	id, err := e.Repo.InsertBlocker(ctx, b)
	if err != nil {
		return domain.Blocker{}, err
	}
	return e.Repo.GetBlocker(ctx, id)
}

type BlockerUpdateOptions struct {
	Description       *string
	Impact            *string
	RelatedStatusID   *int64
	RelatedIncidentID *int64
}

func (e Engine) UpdateBlocker(ctx context.Context, actor policy.Actor, id int64, opts BlockerUpdateOptions) (domain.Blocker, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Blocker{}, err
	}
	defer tx.Rollback()

	b, err := e.Repo.GetBlocker(ctx, id)
	if err != nil {
		return domain.Blocker{}, err
	}
	if err := policy.BlockerEdit(b); err != nil {
		return domain.Blocker{}, err
	}
	if opts.Description != nil {
		if strings.TrimSpace(*opts.Description) == "" {
			return domain.Blocker{}, policy.ValidationError{Field: "description", Reason: "required"}
		}
		b.Description = strings.TrimSpace(*opts.Description)
	}
	if opts.Impact != nil {
		if strings.TrimSpace(*opts.Impact) == "" {
			return domain.Blocker{}, policy.ValidationError{Field: "impact", Reason: "required"}
		}
		b.Impact = strings.TrimSpace(*opts.Impact)
	}
	if opts.RelatedStatusID != nil {
		if _, err := e.Repo.GetStatusUpdate(ctx, *opts.RelatedStatusID); err != nil {
			return domain.Blocker{}, err
		}
		b.RelatedStatusID = opts.RelatedStatusID
	}
	if opts.RelatedIncidentID != nil {
		if _, err := e.Repo.GetIncident(ctx, *opts.RelatedIncidentID); err != nil {
			return domain.Blocker{}, err
		}
		b.RelatedIncidentID = opts.RelatedIncidentID
	}
	b.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateBlocker(ctx, tx, b); err != nil {
		return domain.Blocker{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Blocker{}, err
	}
	return e.Repo.GetBlocker(ctx, id)
}

// ResolveBlocker moves an active blocker to resolved and stamps resolved_at.
func (e Engine) ResolveBlocker(ctx context.Context, actor policy.Actor, id int64, resolutionNotes *string) (domain.Blocker, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Blocker{}, err
	}
	defer tx.Rollback()

	b, err := e.Repo.GetBlocker(ctx, id)
	if err != nil {
		return domain.Blocker{}, err
	}
	if err := policy.BlockerResolve(b); err != nil {
		return domain.Blocker{}, err
	}
	ts := e.nowRFC3339()
	b.Status = domain.BlockerResolved
	b.ResolvedAt = &ts
	if resolutionNotes != nil {
		b.ResolutionNotes = resolutionNotes
	}
	b.UpdatedAt = ts
	if err := e.Repo.UpdateBlocker(ctx, tx, b); err != nil {
		return domain.Blocker{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Blocker{}, err
	}
	return e.Repo.GetBlocker(ctx, id)
}

// ReopenBlocker moves a resolved blocker back to active. Resolution notes
// are retained for history; resolved_at is cleared.
func (e Engine) ReopenBlocker(ctx context.Context, actor policy.Actor, id int64) (domain.Blocker, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Blocker{}, err
	}
	defer tx.Rollback()

	b, err := e.Repo.GetBlocker(ctx, id)
	if err != nil {
		return domain.Blocker{}, err
	}
	if err := policy.BlockerReopen(b); err != nil {
		return domain.Blocker{}, err
	}
	b.Status = domain.BlockerActive
	b.ResolvedAt = nil
	b.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateBlocker(ctx, tx, b); err != nil {
		return domain.Blocker{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Blocker{}, err
	}
	return e.Repo.GetBlocker(ctx, id)
}

func (e Engine) setBlockerArchived(ctx context.Context, id int64, archived bool) (domain.Blocker, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Blocker{}, err
	}
	defer tx.Rollback()

	b, err := e.Repo.GetBlocker(ctx, id)
	if err != nil {
		return domain.Blocker{}, err
	}
	if archived {
		err = policy.Archive("blocker", b.ID, b.Archived)
	} else {
		err = policy.Unarchive("blocker", b.ID, b.Archived)
	}
	if err != nil {
		return domain.Blocker{}, err
	}
	b.Archived = archived
	b.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateBlocker(ctx, tx, b); err != nil {
		return domain.Blocker{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Blocker{}, err
	}
	return e.Repo.GetBlocker(ctx, id)
}

func (e Engine) ArchiveBlocker(ctx context.Context, actor policy.Actor, id int64) (domain.Blocker, error) {
	return e.setBlockerArchived(ctx, id, true)
}

func (e Engine) UnarchiveBlocker(ctx context.Context, actor policy.Actor, id int64) (domain.Blocker, error) {
	return e.setBlockerArchived(ctx, id, false)
}

// DeleteBlocker permanently removes an archived blocker. Admin only.
func (e Engine) DeleteBlocker(ctx context.Context, actor policy.Actor, id int64) error {
	b, err := e.Repo.GetBlocker(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Delete("blocker", b.ID, b.Archived, actor); err != nil {
		return err
	}
	return e.Repo.DeleteBlocker(ctx, id)
}

func (e Engine) GetBlocker(ctx context.Context, id int64) (domain.Blocker, error) {
	return e.Repo.GetBlocker(ctx, id)
}

func (e Engine) ListBlockers(ctx context.Context, f repo.BlockerFilters) ([]domain.Blocker, int, error) {
	return e.Repo.ListBlockers(ctx, f)
}
