package workflow

import (
	"time"

	"github.com/google/uuid"

	"dossierapi/internal/model"
)

// Record appends uploads to the request's ledger for a batch the Quota
// Guard already admitted, marking the superseded rejections REPLACED in the
// same step. files must be at most adm.Allowed entries; the caller runs
// CanAccept and Record under one per-request critical section.
//
// Recording against an EXPIRED request fails with
// *InvalidStateTransitionError.
func Record(req *model.DocumentRequest, adm Admission, files []model.FileRef, submittedBy string, now time.Time) ([]model.DocumentUpload, error) {
	if DeriveRequestStatus(req, now) == model.RequestExpired {
		return nil, &InvalidStateTransitionError{
			Entity:      "request",
			ID:          req.ID,
			From:        string(model.RequestExpired),
			AttemptedTo: string(model.RequestReceived),
		}
	}

	// Replacement transitions first: the new uploads supersede the oldest
	// rejections without consuming extra quota.
	for _, id := range adm.Replacing[:min(len(files), len(adm.Replacing))] {
		if up := req.Upload(id); up != nil && up.Status == model.UploadRejected {
			up.Status = model.UploadReplaced
		}
	}

	recorded := make([]model.DocumentUpload, 0, len(files))
	for _, f := range files {
		up := model.DocumentUpload{
			ID:          uuid.New().String(),
			RequestID:   req.ID,
			File:        f,
			SubmittedBy: submittedBy,
			SubmittedAt: now,
			Status:      model.UploadPending,
		}
		req.Uploads = append(req.Uploads, up)
		recorded = append(recorded, up)
	}

	req.Status = DeriveRequestStatus(req, now)
	return recorded, nil
}
