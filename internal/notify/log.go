package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// logDispatcher writes each event as a one-line JSON log entry. It is the
// default dispatcher when no Redis connection is configured.
type logDispatcher struct{}

// NewLogDispatcher returns a dispatcher that logs events to stdout.
func NewLogDispatcher() Dispatcher {
	return &logDispatcher{}
}

func (d *logDispatcher) Dispatch(_ context.Context, ev Event) {
	entry := map[string]any{
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"level":      "info",
		"msg":        "notification",
		"event":      ev.Type,
		"dossier_id": ev.DossierID,
	}
	if ev.RequestID != "" {
		entry["request_id"] = ev.RequestID
	}
	if ev.UploadID != "" {
		entry["upload_id"] = ev.UploadID
	}
	if ev.ActorID != "" {
		entry["actor_id"] = ev.ActorID
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
