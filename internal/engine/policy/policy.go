// Package policy holds the lifecycle and authorization rules shared by the
// engine and the HTTP layer. The rules are pure functions over domain values
// so they can be checked before any write happens.
package policy

import (
	"fmt"

	"asyncops/internal/domain"
)

// Actor is the authenticated user a request acts as.
type Actor struct {
	ID   int64
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// ForbiddenError indicates the actor lacks permission for an action.
type ForbiddenError struct {
	Action string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("not permitted to %s", e.Action)
}

// ArchivedError indicates a mutation was attempted on an archived record.
type ArchivedError struct {
	Kind string
	ID   int64
}

func (e ArchivedError) Error() string {
	return fmt.Sprintf("%s %d is archived", e.Kind, e.ID)
}

// NotArchivedError indicates an operation that requires the record to be
// archived first, such as delete or unarchive.
type NotArchivedError struct {
	Kind string
	ID   int64
}

func (e NotArchivedError) Error() string {
	return fmt.Sprintf("%s %d is not archived", e.Kind, e.ID)
}

// InvalidStateError indicates a lifecycle transition the state machine does
// not allow.
type InvalidStateError struct {
	Kind string
	From string
	To   string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Kind, e.From, e.To)
}

// ValidationError indicates a request that fails field-level constraints
// before any write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// CanModifyDecision reports whether the actor may update or delete a
// decision: its creator, or an admin.
func CanModifyDecision(d domain.Decision, actor Actor) bool {
	return actor.IsAdmin() || d.CreatedByID == actor.ID
}

// CanModifyStatusUpdate restricts status update edits to their author.
// There is deliberately no admin override here.
func CanModifyStatusUpdate(s domain.StatusUpdate, actor Actor) bool {
	return s.UserID == actor.ID
}

// IncidentSetStatus validates changing an incident's status. Setting the
// current status again is an allowed idempotent write.
func IncidentSetStatus(in domain.Incident) error {
	if in.Archived {
		return ArchivedError{Kind: "incident", ID: in.ID}
	}
	return nil
}

// IncidentAssign validates (re)assigning an incident.
func IncidentAssign(in domain.Incident) error {
	if in.Archived {
		return ArchivedError{Kind: "incident", ID: in.ID}
	}
	return nil
}

// IncidentEdit validates field edits on an incident.
func IncidentEdit(in domain.Incident) error {
	if in.Archived {
		return ArchivedError{Kind: "incident", ID: in.ID}
	}
	return nil
}

// BlockerResolve validates resolving a blocker.
func BlockerResolve(b domain.Blocker) error {
	if b.Archived {
		return ArchivedError{Kind: "blocker", ID: b.ID}
	}
	if b.Status != domain.BlockerActive {
		return InvalidStateError{Kind: "blocker", From: b.Status, To: domain.BlockerResolved}
	}
	return nil
}

// BlockerReopen validates reopening a resolved blocker.
func BlockerReopen(b domain.Blocker) error {
	if b.Archived {
		return ArchivedError{Kind: "blocker", ID: b.ID}
	}
	if b.Status != domain.BlockerResolved {
		return InvalidStateError{Kind: "blocker", From: b.Status, To: domain.BlockerActive}
	}
	return nil
}

// BlockerEdit validates field edits on a blocker.
func BlockerEdit(b domain.Blocker) error {
	if b.Archived {
		return ArchivedError{Kind: "blocker", ID: b.ID}
	}
	return nil
}

// Archive validates archiving. There is no status precondition; an open
// record may be archived.
func Archive(kind string, id int64, archived bool) error {
	if archived {
		return ArchivedError{Kind: kind, ID: id}
	}
	return nil
}

// Unarchive validates unarchiving.
func Unarchive(kind string, id int64, archived bool) error {
	if !archived {
		return NotArchivedError{Kind: kind, ID: id}
	}
	return nil
}

// Delete validates hard deletion: admin only, and only once archived.
func Delete(kind string, id int64, archived bool, actor Actor) error {
	if !actor.IsAdmin() {
		return ForbiddenError{Action: "delete " + kind}
	}
	if !archived {
		return NotArchivedError{Kind: kind, ID: id}
	}
	return nil
}

// GenerateSummary validates triggering summary generation.
func GenerateSummary(actor Actor) error {
	if !actor.IsAdmin() {
		return ForbiddenError{Action: "generate summaries"}
	}
	return nil
}
