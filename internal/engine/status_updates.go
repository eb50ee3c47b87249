package engine

import (
	"context"
	"strings"

	"asyncops/internal/domain"
	"asyncops/internal/engine/policy"
	"asyncops/internal/repo"
)

type StatusUpdateCreateOptions struct {
	Title   string
	Content string
	Tags    []string
}

func normalizeTags(tags []string) []string {
	var res []string
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		res = append(res, t)
	}
	return res
}

func (e Engine) CreateStatusUpdate(ctx context.Context, actor policy.Actor, opts StatusUpdateCreateOptions) (domain.StatusUpdate, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.StatusUpdate{}, policy.ValidationError{Field: "title", Reason: "required"}
	}
	if strings.TrimSpace(opts.Content) == "" {
		return domain.StatusUpdate{}, policy.ValidationError{Field: "content", Reason: "required"}
	}
	now := e.nowRFC3339()
	s := domain.StatusUpdate{
		UserID:    actor.ID,
		Title:     strings.TrimSpace(opts.Title),
		Content:   opts.Content,
		Tags:      normalizeTags(opts.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := e.Repo.InsertStatusUpdate(ctx, s)
	if err != nil {
		return domain.StatusUpdate{}, err
	}
	return e.Repo.GetStatusUpdate(ctx, id)
}

type StatusUpdateUpdateOptions struct {
	Title   *string
	Content *string
	Tags    []string
}

// UpdateStatusUpdate edits an update. Only the author may edit; admins have
// no override here.
func (e Engine) UpdateStatusUpdate(ctx context.Context, actor policy.Actor, id int64, opts StatusUpdateUpdateOptions) (domain.StatusUpdate, error) {
	s, err := e.Repo.GetStatusUpdate(ctx, id)
	if err != nil {
		return domain.StatusUpdate{}, err
	}
	if !policy.CanModifyStatusUpdate(s, actor) {
		return domain.StatusUpdate{}, policy.ForbiddenError{Action: "edit another user's status update"}
	}
	if opts.Title != nil {
		if strings.TrimSpace(*opts.Title) == "" {
			return domain.StatusUpdate{}, policy.ValidationError{Field: "title", Reason: "required"}
		}
		s.Title = strings.TrimSpace(*opts.Title)
	}
	if opts.Content != nil {
		if strings.TrimSpace(*opts.Content) == "" {
			return domain.StatusUpdate{}, policy.ValidationError{Field: "content", Reason: "required"}
		}
		s.Content = *opts.Content
	}
	if opts.Tags != nil {
		s.Tags = normalizeTags(opts.Tags)
	}
	s.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateStatusUpdate(ctx, s); err != nil {
		return domain.StatusUpdate{}, err
	}
	return e.Repo.GetStatusUpdate(ctx, id)
}

func (e Engine) DeleteStatusUpdate(ctx context.Context, actor policy.Actor, id int64) error {
	s, err := e.Repo.GetStatusUpdate(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanModifyStatusUpdate(s, actor) {
		return policy.ForbiddenError{Action: "delete another user's status update"}
	}
	return e.Repo.DeleteStatusUpdate(ctx, id)
}

func (e Engine) GetStatusUpdate(ctx context.Context, id int64) (domain.StatusUpdate, error) {
	return e.Repo.GetStatusUpdate(ctx, id)
}

func (e Engine) ListStatusUpdates(ctx context.Context, f repo.StatusUpdateFilters) ([]domain.StatusUpdate, int, error) {
	return e.Repo.ListStatusUpdates(ctx, f)
}
