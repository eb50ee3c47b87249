package domain

// Roles known to the API. Anything else is rejected at registration time.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Incident statuses.
const (
	IncidentOpen       = "open"
	IncidentInProgress = "in_progress"
	IncidentResolved   = "resolved"
	IncidentClosed     = "closed"
)

// Blocker statuses.
const (
	BlockerActive   = "active"
	BlockerResolved = "resolved"
)

// Audit change types.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Role         string `json:"role" enum:"member,admin"`
	IsActive     bool   `json:"is_active"`
	PasswordHash string `json:"-"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

// UserRef is the embedded shape of a user inside other entities.
type UserRef struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type StatusUpdate struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"user_id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	Author    *UserRef `json:"author,omitempty"`
	CreatedAt string   `json:"created_at" format:"date-time"`
	UpdatedAt string   `json:"updated_at" format:"date-time"`
}

type Incident struct {
	ID              int64    `json:"id"`
	ReportedByID    int64    `json:"reported_by_id"`
	AssignedToID    *int64   `json:"assigned_to_id,omitempty"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Severity        string   `json:"severity" enum:"low,medium,high,critical"`
	Status          string   `json:"status" enum:"open,in_progress,resolved,closed"`
	ResolutionNotes *string  `json:"resolution_notes,omitempty"`
	Archived        bool     `json:"archived"`
	ReportedBy      *UserRef `json:"reported_by,omitempty"`
	AssignedTo      *UserRef `json:"assigned_to,omitempty"`
	CreatedAt       string   `json:"created_at" format:"date-time"`
	UpdatedAt       string   `json:"updated_at" format:"date-time"`
	ResolvedAt      *string  `json:"resolved_at,omitempty" format:"date-time"`
}

// Open reports whether the incident still counts as active work.
func (i Incident) Open() bool {
	return i.Status == IncidentOpen || i.Status == IncidentInProgress
}

type Blocker struct {
	ID                int64    `json:"id"`
	ReportedByID      int64    `json:"reported_by_id"`
	Description       string   `json:"description"`
	Impact            string   `json:"impact"`
	Status            string   `json:"status" enum:"active,resolved"`
	ResolutionNotes   *string  `json:"resolution_notes,omitempty"`
	Archived          bool     `json:"archived"`
	RelatedStatusID   *int64   `json:"related_status_id,omitempty"`
	RelatedIncidentID *int64   `json:"related_incident_id,omitempty"`
	ReportedBy        *UserRef `json:"reported_by,omitempty"`
	CreatedAt         string   `json:"created_at" format:"date-time"`
	UpdatedAt         string   `json:"updated_at" format:"date-time"`
	ResolvedAt        *string  `json:"resolved_at,omitempty" format:"date-time"`
}

type Decision struct {
	ID           int64     `json:"id"`
	CreatedByID  int64     `json:"created_by_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Context      string    `json:"context,omitempty"`
	Outcome      string    `json:"outcome"`
	DecisionDate string    `json:"decision_date" format:"date"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedBy    *UserRef  `json:"created_by,omitempty"`
	Participants []UserRef `json:"participants"`
	CreatedAt    string    `json:"created_at" format:"date-time"`
	UpdatedAt    string    `json:"updated_at" format:"date-time"`
}

// AuditLogEntry is one append-only record of a decision change.
// Entries survive deletion of the decision they describe.
type AuditLogEntry struct {
	ID          int64    `json:"id"`
	DecisionID  int64    `json:"decision_id"`
	ChangedByID int64    `json:"changed_by_id"`
	ChangeType  string   `json:"change_type" enum:"created,updated,deleted"`
	FieldName   *string  `json:"field_name,omitempty"`
	OldValue    *string  `json:"old_value,omitempty"`
	NewValue    *string  `json:"new_value,omitempty"`
	ChangedBy   *UserRef `json:"changed_by,omitempty"`
	ChangedAt   string   `json:"changed_at" format:"date-time"`
}

type DailySummary struct {
	ID                 int64          `json:"id"`
	SummaryDate        string         `json:"summary_date" format:"date"`
	Content            SummaryContent `json:"content"`
	StatusUpdatesCount int            `json:"status_updates_count"`
	IncidentsCount     int            `json:"incidents_count"`
	BlockersCount      int            `json:"blockers_count"`
	DecisionsCount     int            `json:"decisions_count"`
	GeneratedAt        string         `json:"generated_at" format:"date-time"`
	CreatedAt          string         `json:"created_at" format:"date-time"`
}

// SummaryContent is the snapshot stored with a daily summary row.
type SummaryContent struct {
	StatusUpdates   []SummaryStatusUpdate `json:"status_updates"`
	Incidents       []SummaryIncident     `json:"incidents"`
	Blockers        []SummaryBlocker      `json:"blockers"`
	RecentDecisions []SummaryDecision     `json:"recent_decisions"`
	Statistics      SummaryStatistics     `json:"statistics"`
}

type SummaryStatusUpdate struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type SummaryIncident struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Status   string `json:"status"`
}

type SummaryBlocker struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type SummaryDecision struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	DecisionDate string `json:"decision_date" format:"date"`
}

type SummaryStatistics struct {
	TotalStatusUpdates int `json:"total_status_updates"`
	CriticalIncidents  int `json:"critical_incidents"`
	ActiveBlockers     int `json:"active_blockers"`
	DecisionsLast7Days int `json:"decisions_last_7_days"`
}
