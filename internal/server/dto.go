package server

import "asyncops/internal/domain"

type RegisterRequest struct {
	Email    string `json:"email" format:"email"`
	FullName string `json:"full_name" minLength:"1"`
	Password string `json:"password" minLength:"8"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type" example:"bearer"`
	User        domain.User `json:"user"`
}

type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty" format:"email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" minLength:"8"`
}

type CreateStatusUpdateRequest struct {
	Title   string   `json:"title" minLength:"1"`
	Content string   `json:"content" minLength:"1"`
	Tags    []string `json:"tags,omitempty"`
}

type UpdateStatusUpdateRequest struct {
	Title   *string  `json:"title,omitempty"`
	Content *string  `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

type CreateIncidentRequest struct {
	Title        string `json:"title" minLength:"1"`
	Description  string `json:"description"`
	Severity     string `json:"severity" enum:"low,medium,high,critical"`
	AssignedToID *int64 `json:"assigned_to_id,omitempty"`
}

type UpdateIncidentRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Severity    *string `json:"severity,omitempty" enum:"low,medium,high,critical"`
}

type SetIncidentStatusRequest struct {
	Status          string  `json:"status" enum:"open,in_progress,resolved,closed"`
	ResolutionNotes *string `json:"resolution_notes,omitempty"`
}

type AssignIncidentRequest struct {
	// Null unassigns the incident.
	AssignedToID *int64 `json:"assigned_to_id"`
}

type CreateBlockerRequest struct {
	Description       string `json:"description" minLength:"1"`
	Impact            string `json:"impact" minLength:"1"`
	RelatedStatusID   *int64 `json:"related_status_id,omitempty"`
	RelatedIncidentID *int64 `json:"related_incident_id,omitempty"`
}

type UpdateBlockerRequest struct {
	Description       *string `json:"description,omitempty"`
	Impact            *string `json:"impact,omitempty"`
	RelatedStatusID   *int64  `json:"related_status_id,omitempty"`
	RelatedIncidentID *int64  `json:"related_incident_id,omitempty"`
}

type ResolveBlockerRequest struct {
	ResolutionNotes *string `json:"resolution_notes,omitempty"`
}

type CreateDecisionRequest struct {
	Title          string   `json:"title" minLength:"1"`
	Description    string   `json:"description"`
	Context        string   `json:"context,omitempty"`
	Outcome        string   `json:"outcome" minLength:"1"`
	DecisionDate   string   `json:"decision_date" format:"date"`
	Tags           []string `json:"tags,omitempty"`
	ParticipantIDs []int64  `json:"participant_ids,omitempty"`
}

type UpdateDecisionRequest struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Context        *string  `json:"context,omitempty"`
	Outcome        *string  `json:"outcome,omitempty"`
	DecisionDate   *string  `json:"decision_date,omitempty" format:"date"`
	Tags           []string `json:"tags,omitempty"`
	ParticipantIDs []int64  `json:"participant_ids,omitempty"`
}

type paginatedStatusUpdates struct {
	Items []domain.StatusUpdate `json:"items"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

type paginatedIncidents struct {
	Items []domain.Incident `json:"items"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type paginatedBlockers struct {
	Items []domain.Blocker `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

type paginatedDecisions struct {
	Items []domain.Decision `json:"items"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type paginatedSummaries struct {
	Items []domain.DailySummary `json:"items"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
