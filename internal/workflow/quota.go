package workflow

import (
	"dossierapi/internal/model"
)

// Admission is the Quota Guard's verdict for a submission batch.
// Allowed is how many new uploads may be recorded now; Replacing lists the
// rejected uploads (oldest first) that the new uploads supersede.
type Admission struct {
	Allowed   int
	Replacing []string
}

// CanAccept computes how many new uploads the request can take for a batch
// of requestedCount files. It is the single source of truth for quota
// arithmetic; callers must evaluate it and record the uploads inside one
// critical section per request so two concurrent batches cannot both see
// free slots.
//
// On overflow it returns a *QuotaExceededError alongside an Admission still
// carrying the usable capacity, so callers may record a partial batch.
func CanAccept(req *model.DocumentRequest, requestedCount int) (Admission, error) {
	validCount := req.ValidUploadCount()
	refused := rejectedOldestFirst(req)

	availableSlots := req.QuantiteMax - validCount
	if availableSlots < 0 {
		availableSlots = 0
	}
	capacity := len(refused) + availableSlots

	allowed := requestedCount
	if allowed > capacity {
		allowed = capacity
	}

	adm := Admission{Allowed: allowed}
	// Replacements are consumed before free slots, oldest rejection first.
	if n := min(allowed, len(refused)); n > 0 {
		adm.Replacing = refused[:n]
	}

	if requestedCount > capacity {
		return adm, &QuotaExceededError{
			RequestID: req.ID,
			Allowed:   capacity,
			Requested: requestedCount,
		}
	}
	return adm, nil
}

// rejectedOldestFirst returns the IDs of REJECTED (not yet REPLACED)
// uploads in submission order. The ledger is already ordered by submission
// time.
func rejectedOldestFirst(req *model.DocumentRequest) []string {
	var ids []string
	for i := range req.Uploads {
		if req.Uploads[i].Status == model.UploadRejected {
			ids = append(ids, req.Uploads[i].ID)
		}
	}
	return ids
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
