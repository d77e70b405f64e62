// Package notify is the notification-dispatcher collaborator. Dispatch is
// fire-and-forget: the workflow informs it of status transitions and never
// depends on delivery.
package notify

import "context"

// EventType enumerates the workflow transitions worth notifying about.
type EventType string

const (
	EventUploadReceived   EventType = "upload.received"
	EventUploadApproved   EventType = "upload.approved"
	EventUploadRejected   EventType = "upload.rejected"
	EventRequestApproved  EventType = "request.approved"
	EventDossierComplete  EventType = "dossier.complete"
	EventDossierFinalized EventType = "dossier.finalized"
)

// Event describes one workflow transition.
type Event struct {
	Type      EventType `json:"type"`
	DossierID string    `json:"dossier_id"`
	RequestID string    `json:"request_id,omitempty"`
	UploadID  string    `json:"upload_id,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	Comment   string    `json:"comment,omitempty"`
}

// Dispatcher delivers events to interested parties. Implementations must
// swallow their own delivery errors; callers never retry.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}
