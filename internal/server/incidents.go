package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"asyncops/internal/domain"
	"asyncops/internal/engine"
	"asyncops/internal/repo"
)

type incidentBody struct {
	Body domain.Incident `json:"body"`
}

func registerIncidents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-incident",
		Method:        http.MethodPost,
		Path:          "/incidents",
		Summary:       "Report an incident",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateIncidentRequest `json:"body"`
	}) (*incidentBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.CreateIncident(ctx, actor, engine.IncidentCreateOptions{
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			Severity:     input.Body.Severity,
			AssignedToID: input.Body.AssignedToID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &incidentBody{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-incidents",
		Method:      http.MethodGet,
		Path:        "/incidents",
		Summary:     "List incidents",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status          string `query:"status" enum:",open,in_progress,resolved,closed"`
		Severity        string `query:"severity" enum:",low,medium,high,critical"`
		AssignedToID    int64  `query:"assigned_to_id"`
		IncludeArchived bool   `query:"include_archived"`
		Page            int    `query:"page" default:"1"`
		Limit           int    `query:"limit" default:"50"`
	}) (*struct {
		Body paginatedIncidents `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		page, limit := normalizePage(input.Page), normalizeLimit(input.Limit)
		items, total, err := e.ListIncidents(ctx, repo.IncidentFilters{
			Status:          input.Status,
			Severity:        input.Severity,
			AssignedToID:    input.AssignedToID,
			IncludeArchived: input.IncludeArchived,
			Page:            page,
			Limit:           limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Incident{}
		}
		return &struct {
			Body paginatedIncidents `json:"body"`
		}{Body: paginatedIncidents{Items: items, Total: total, Page: page, Limit: limit}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-incident",
		Method:      http.MethodGet,
		Path:        "/incidents/{id}",
		Summary:     "Get incident",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*incidentBody, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		in, err := e.GetIncident(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &incidentBody{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-incident",
		Method:      http.MethodPatch,
		Path:        "/incidents/{id}",
		Summary:     "Edit incident fields",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   int64                 `path:"id"`
		Body UpdateIncidentRequest `json:"body"`
	}) (*incidentBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.UpdateIncident(ctx, actor, input.ID, engine.IncidentUpdateOptions{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Severity:    input.Body.Severity,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &incidentBody{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-incident-status",
		Method:      http.MethodPatch,
		Path:        "/incidents/{id}/status",
		Summary:     "Change incident status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   int64                    `path:"id"`
		Body SetIncidentStatusRequest `json:"body"`
	}) (*incidentBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.SetIncidentStatus(ctx, actor, input.ID, input.Body.Status, input.Body.ResolutionNotes)
		if err != nil {
			return nil, handleError(err)
		}
		return &incidentBody{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-incident",
		Method:      http.MethodPatch,
		Path:        "/incidents/{id}/assign",
		Summary:     "Assign or unassign an incident",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   int64                 `path:"id"`
		Body AssignIncidentRequest `json:"body"`
	}) (*incidentBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.AssignIncident(ctx, actor, input.ID, input.Body.AssignedToID)
		if err != nil {
			return nil, handleError(err)
		}
		return &incidentBody{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-incident",
		Method:      http.MethodPatch,
		Path:        "/incidents/{id}/archive",
		Summary:     "Archive incident",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*incidentBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.ArchiveIncident(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &incidentBody{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unarchive-incident",
		Method:      http.MethodPatch,
		Path:        "/incidents/{id}/unarchive",
		Summary:     "Unarchive incident",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*incidentBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.UnarchiveIncident(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &incidentBody{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-incident",
		Method:      http.MethodDelete,
		Path:        "/incidents/{id}",
		Summary:     "Permanently delete an archived incident",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteIncident(ctx, actor, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
