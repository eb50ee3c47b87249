package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"asyncops/internal/domain"
	"asyncops/internal/engine"
	"asyncops/internal/repo"
)

type decisionBody struct {
	Body domain.Decision `json:"body"`
}

func registerDecisions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-decision",
		Method:        http.MethodPost,
		Path:          "/decisions",
		Summary:       "Record a decision",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateDecisionRequest `json:"body"`
	}) (*decisionBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDecision(ctx, actor, engine.DecisionCreateOptions{
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			Context:        input.Body.Context,
			Outcome:        input.Body.Outcome,
			DecisionDate:   input.Body.DecisionDate,
			Tags:           input.Body.Tags,
			ParticipantIDs: input.Body.ParticipantIDs,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &decisionBody{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-decisions",
		Method:      http.MethodGet,
		Path:        "/decisions",
		Summary:     "List decisions, newest decision date first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Tag           string `query:"tag"`
		StartDate     string `query:"start_date" format:"date" doc:"Earliest decision date, inclusive"`
		EndDate       string `query:"end_date" format:"date" doc:"Latest decision date, inclusive"`
		ParticipantID int64  `query:"participant_id"`
		Search        string `query:"search" doc:"Substring match on title and description"`
		Page          int    `query:"page" default:"1"`
		Limit         int    `query:"limit" default:"50"`
	}) (*struct {
		Body paginatedDecisions `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		page, limit := normalizePage(input.Page), normalizeLimit(input.Limit)
		items, total, err := e.ListDecisions(ctx, repo.DecisionFilters{
			Tag:           input.Tag,
			StartDate:     input.StartDate,
			EndDate:       input.EndDate,
			ParticipantID: input.ParticipantID,
			Search:        input.Search,
			Page:          page,
			Limit:         limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Decision{}
		}
		return &struct {
			Body paginatedDecisions `json:"body"`
		}{Body: paginatedDecisions{Items: items, Total: total, Page: page, Limit: limit}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-decision",
		Method:      http.MethodGet,
		Path:        "/decisions/{id}",
		Summary:     "Get decision",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*decisionBody, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		d, err := e.GetDecision(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &decisionBody{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-decision",
		Method:      http.MethodPatch,
		Path:        "/decisions/{id}",
		Summary:     "Edit a decision",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64                 `path:"id"`
		Body UpdateDecisionRequest `json:"body"`
	}) (*decisionBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.UpdateDecision(ctx, actor, input.ID, engine.DecisionUpdateOptions{
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			Context:        input.Body.Context,
			Outcome:        input.Body.Outcome,
			DecisionDate:   input.Body.DecisionDate,
			Tags:           input.Body.Tags,
			ParticipantIDs: input.Body.ParticipantIDs,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &decisionBody{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-decision",
		Method:      http.MethodDelete,
		Path:        "/decisions/{id}",
		Summary:     "Delete a decision, keeping its audit trail",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteDecision(ctx, actor, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-decision-audit",
		Method:      http.MethodGet,
		Path:        "/decisions/{id}/audit",
		Summary:     "Audit trail for a decision, oldest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body []domain.AuditLogEntry `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		entries, err := e.DecisionAuditTrail(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if entries == nil {
			entries = []domain.AuditLogEntry{}
		}
		return &struct {
			Body []domain.AuditLogEntry `json:"body"`
		}{Body: entries}, nil
	})
}
