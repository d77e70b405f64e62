package workflow

import (
	"math"
	"time"

	"dossierapi/internal/model"
)

// Aggregate recomputes the dossier's progress counters and status as a
// side-effect-free fold over its requests. Submissions beyond a request's
// QuantiteMin do not inflate progress. A VALIDATED dossier keeps its status;
// recomputation never reverts finalization.
func Aggregate(d *model.Dossier, now time.Time) {
	requis := 0
	uploaded := 0
	for i := range d.Requests {
		r := &d.Requests[i]
		requis += r.QuantiteMin
		uploaded += min(r.ValidUploadCount(), r.QuantiteMin)
	}

	d.DocumentsRequis = requis
	d.DocumentsUpload = uploaded
	if requis == 0 {
		d.Pourcentage = 100
	} else {
		d.Pourcentage = int(math.Round(100 * float64(uploaded) / float64(requis)))
	}

	if d.Status == model.DossierValidated {
		return
	}

	switch {
	case uploaded == 0:
		d.Status = model.DossierPending
	case allObligatoireApproved(d):
		d.Status = model.DossierComplete
	default:
		d.Status = model.DossierInProgress
	}

	if d.Status == model.DossierComplete {
		if d.CompletedAt == nil {
			completedAt := now
			d.CompletedAt = &completedAt
		}
	} else {
		// A rejection can reopen a previously complete dossier.
		d.CompletedAt = nil
	}
}

func allObligatoireApproved(d *model.Dossier) bool {
	for i := range d.Requests {
		if d.Requests[i].Obligatoire && d.Requests[i].Status != model.RequestApproved {
			return false
		}
	}
	return true
}
