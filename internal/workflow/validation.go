package workflow

import (
	"time"

	"dossierapi/internal/model"
)

// Decide applies an accountant decision to an upload and re-derives the
// owning request's status. Repeating the same decision on an already
// decided upload is a no-op (changed=false); conflicting decisions and
// decisions on REPLACED uploads are invalid transitions.
func Decide(req *model.DocumentRequest, up *model.DocumentUpload, decision model.Decision, comment string, now time.Time) (bool, error) {
	target := model.UploadApproved
	if decision == model.DecisionReject {
		target = model.UploadRejected
	}

	if up.Status == target {
		return false, nil
	}
	if up.Status != model.UploadPending && up.Status != model.UploadInReview {
		return false, &InvalidStateTransitionError{
			Entity:      "upload",
			ID:          up.ID,
			From:        string(up.Status),
			AttemptedTo: string(target),
		}
	}

	up.Status = target
	up.ReviewComment = comment
	decidedAt := now
	up.DecidedAt = &decidedAt

	req.Status = DeriveRequestStatus(req, now)
	return true, nil
}

// Finalize archives a COMPLETE dossier. A VALIDATED dossier is terminal:
// finalizing it again fails with *AlreadyFinalizedError, and any other
// state fails with *InvalidStateTransitionError.
func Finalize(d *model.Dossier, comment string, now time.Time) error {
	if d.Status == model.DossierValidated {
		return &AlreadyFinalizedError{DossierID: d.ID}
	}
	if d.Status != model.DossierComplete {
		return &InvalidStateTransitionError{
			Entity:      "dossier",
			ID:          d.ID,
			From:        string(d.Status),
			AttemptedTo: string(model.DossierValidated),
		}
	}

	d.Status = model.DossierValidated
	validatedAt := now
	d.ValidatedAt = &validatedAt
	d.ValidationComment = comment
	return nil
}

// EnsureMutable rejects fulfillment writes on a VALIDATED dossier. The
// archive is terminal: once validated, the aggregate only serves reads.
func EnsureMutable(d *model.Dossier) error {
	if d.Status != model.DossierValidated {
		return nil
	}
	return &InvalidStateTransitionError{
		Entity:      "dossier",
		ID:          d.ID,
		From:        string(model.DossierValidated),
		AttemptedTo: string(model.DossierInProgress),
	}
}
