package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"asyncops/internal/domain"
	"asyncops/internal/engine"
	"asyncops/internal/repo"
)

type statusUpdateBody struct {
	Body domain.StatusUpdate `json:"body"`
}

func registerStatusUpdates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-status-update",
		Method:        http.MethodPost,
		Path:          "/status-updates",
		Summary:       "Post a status update",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateStatusUpdateRequest `json:"body"`
	}) (*statusUpdateBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		su, err := e.CreateStatusUpdate(ctx, actor, engine.StatusUpdateCreateOptions{
			Title:   input.Body.Title,
			Content: input.Body.Content,
			Tags:    input.Body.Tags,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &statusUpdateBody{Body: su}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-status-updates",
		Method:      http.MethodGet,
		Path:        "/status-updates",
		Summary:     "List status updates, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		UserID    int64  `query:"user_id"`
		StartDate string `query:"start_date" format:"date-time" doc:"Earliest created_at, inclusive"`
		EndDate   string `query:"end_date" format:"date-time" doc:"Latest created_at, inclusive"`
		Page      int    `query:"page" default:"1"`
		Limit     int    `query:"limit" default:"50"`
	}) (*struct {
		Body paginatedStatusUpdates `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		page, limit := normalizePage(input.Page), normalizeLimit(input.Limit)
		items, total, err := e.ListStatusUpdates(ctx, repo.StatusUpdateFilters{
			UserID:    input.UserID,
			StartDate: input.StartDate,
			EndDate:   input.EndDate,
			Page:      page,
			Limit:     limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.StatusUpdate{}
		}
		return &struct {
			Body paginatedStatusUpdates `json:"body"`
		}{Body: paginatedStatusUpdates{Items: items, Total: total, Page: page, Limit: limit}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-status-update",
		Method:      http.MethodGet,
		Path:        "/status-updates/{id}",
		Summary:     "Get status update",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*statusUpdateBody, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		su, err := e.GetStatusUpdate(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &statusUpdateBody{Body: su}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-status-update",
		Method:      http.MethodPatch,
		Path:        "/status-updates/{id}",
		Summary:     "Edit own status update",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64                     `path:"id"`
		Body UpdateStatusUpdateRequest `json:"body"`
	}) (*statusUpdateBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		su, err := e.UpdateStatusUpdate(ctx, actor, input.ID, engine.StatusUpdateUpdateOptions{
			Title:   input.Body.Title,
			Content: input.Body.Content,
			Tags:    input.Body.Tags,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &statusUpdateBody{Body: su}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-status-update",
		Method:      http.MethodDelete,
		Path:        "/status-updates/{id}",
		Summary:     "Delete own status update",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteStatusUpdate(ctx, actor, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
