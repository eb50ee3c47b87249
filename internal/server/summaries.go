package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"asyncops/internal/domain"
	"asyncops/internal/engine"
	"asyncops/internal/repo"
)

type summaryBody struct {
	Body domain.DailySummary `json:"body"`
}

func registerSummaries(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "generate-summary",
		Method:        http.MethodPost,
		Path:          "/summaries/generate",
		Summary:       "Generate the daily summary for a date",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		SummaryDate string `query:"summary_date" format:"date" doc:"Date to summarize; defaults to today (UTC)"`
		ForceUpdate bool   `query:"force_update" doc:"Regenerate even if a summary already exists for the date"`
	}) (*summaryBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.GenerateDailySummary(ctx, actor, input.SummaryDate, input.ForceUpdate)
		if err != nil {
			return nil, handleError(err)
		}
		return &summaryBody{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-summaries",
		Method:      http.MethodGet,
		Path:        "/summaries",
		Summary:     "List daily summaries, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		StartDate string `query:"start_date" format:"date" doc:"Earliest summary date, inclusive"`
		EndDate   string `query:"end_date" format:"date" doc:"Latest summary date, inclusive"`
		Page      int    `query:"page" default:"1"`
		Limit     int    `query:"limit" default:"50"`
	}) (*struct {
		Body paginatedSummaries `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		page, limit := normalizePage(input.Page), normalizeLimit(input.Limit)
		items, total, err := e.ListSummaries(ctx, repo.SummaryFilters{
			StartDate: input.StartDate,
			EndDate:   input.EndDate,
			Page:      page,
			Limit:     limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.DailySummary{}
		}
		return &struct {
			Body paginatedSummaries `json:"body"`
		}{Body: paginatedSummaries{Items: items, Total: total, Page: page, Limit: limit}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-summary",
		Method:      http.MethodGet,
		Path:        "/summaries/{id}",
		Summary:     "Get daily summary",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*summaryBody, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		s, err := e.GetSummary(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &summaryBody{Body: s}, nil
	})
}
