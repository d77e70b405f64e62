package workflow

import (
	"time"

	"dossierapi/internal/model"
)

// DeriveRequestStatus recomputes a request's status from its upload ledger.
// It is idempotent: the result depends only on the ledger, the quantity
// rules and the clock, never on the previously stored status.
func DeriveRequestStatus(req *model.DocumentRequest, now time.Time) model.RequestStatus {
	approved := req.ApprovedUploadCount()
	if approved >= req.QuantiteMin {
		return model.RequestApproved
	}

	if req.DueDate != nil && now.After(*req.DueDate) {
		return model.RequestExpired
	}

	if req.ValidUploadCount() > 0 {
		return model.RequestReceived
	}

	// No valid uploads remain: either nothing was ever submitted, or every
	// remaining submission ended in rejection and awaits replacement.
	for i := range req.Uploads {
		if req.Uploads[i].Status == model.UploadRejected {
			return model.RequestRejectedNeedsReplacement
		}
	}
	return model.RequestAwaiting
}
