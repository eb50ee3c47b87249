package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"asyncops/internal/domain"
	"asyncops/internal/engine"
	"asyncops/internal/repo"
)

type blockerBody struct {
	Body domain.Blocker `json:"body"`
}

func registerBlockers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-blocker",
		Method:        http.MethodPost,
		Path:          "/blockers",
		Summary:       "Report a blocker",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateBlockerRequest `json:"body"`
	}) (*blockerBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.CreateBlocker(ctx, actor, engine.BlockerCreateOptions{
			Description:       input.Body.Description,
			Impact:            input.Body.Impact,
			RelatedStatusID:   input.Body.RelatedStatusID,
			RelatedIncidentID: input.Body.RelatedIncidentID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &blockerBody{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-blockers",
		Method:      http.MethodGet,
		Path:        "/blockers",
		Summary:     "List blockers, active first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status          string `query:"status" enum:",active,resolved"`
		IncludeArchived bool   `query:"include_archived"`
		Page            int    `query:"page" default:"1"`
		Limit           int    `query:"limit" default:"50"`
	}) (*struct {
		Body paginatedBlockers `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		page, limit := normalizePage(input.Page), normalizeLimit(input.Limit)
		items, total, err := e.ListBlockers(ctx, repo.BlockerFilters{
			Status:          input.Status,
			IncludeArchived: input.IncludeArchived,
			Page:            page,
			Limit:           limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Blocker{}
		}
		return &struct {
			Body paginatedBlockers `json:"body"`
		}{Body: paginatedBlockers{Items: items, Total: total, Page: page, Limit: limit}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-blocker",
		Method:      http.MethodGet,
		Path:        "/blockers/{id}",
		Summary:     "Get blocker",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*blockerBody, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		b, err := e.GetBlocker(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &blockerBody{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-blocker",
		Method:      http.MethodPatch,
		Path:        "/blockers/{id}",
		Summary:     "Edit blocker fields",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   int64                `path:"id"`
		Body UpdateBlockerRequest `json:"body"`
	}) (*blockerBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.UpdateBlocker(ctx, actor, input.ID, engine.BlockerUpdateOptions{
			Description:       input.Body.Description,
			Impact:            input.Body.Impact,
			RelatedStatusID:   input.Body.RelatedStatusID,
			RelatedIncidentID: input.Body.RelatedIncidentID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &blockerBody{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-blocker",
		Method:      http.MethodPatch,
		Path:        "/blockers/{id}/resolve",
		Summary:     "Mark an active blocker resolved",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   int64                 `path:"id"`
		Body ResolveBlockerRequest `json:"body"`
	}) (*blockerBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.ResolveBlocker(ctx, actor, input.ID, input.Body.ResolutionNotes)
		if err != nil {
			return nil, handleError(err)
		}
		return &blockerBody{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reopen-blocker",
		Method:      http.MethodPatch,
		Path:        "/blockers/{id}/reopen",
		Summary:     "Reopen a resolved blocker",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*blockerBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.ReopenBlocker(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &blockerBody{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-blocker",
		Method:      http.MethodPatch,
		Path:        "/blockers/{id}/archive",
		Summary:     "Archive blocker",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*blockerBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.ArchiveBlocker(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &blockerBody{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unarchive-blocker",
		Method:      http.MethodPatch,
		Path:        "/blockers/{id}/unarchive",
		Summary:     "Unarchive blocker",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*blockerBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.UnarchiveBlocker(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &blockerBody{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-blocker",
		Method:      http.MethodDelete,
		Path:        "/blockers/{id}",
		Summary:     "Permanently delete an archived blocker",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteBlocker(ctx, actor, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
