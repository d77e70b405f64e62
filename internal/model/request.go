package model

import "time"

// DocumentRequest specifies a required document type with a minimum and
// maximum submission quantity. Its Status is always derived from the upload
// ledger (workflow.DeriveRequestStatus); 1 <= QuantiteMin <= QuantiteMax.
type DocumentRequest struct {
	ID           string        `json:"id"`
	DossierID    string        `json:"dossier_id"`
	Position     int           `json:"position"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	DocumentType string        `json:"document_type"`
	Obligatoire  bool          `json:"obligatoire"`
	QuantiteMin  int           `json:"quantite_min"`
	QuantiteMax  int           `json:"quantite_max"`
	Status       RequestStatus `json:"status"`

	AcceptedFormats []string   `json:"accepted_formats,omitempty"`
	MaxSizeBytes    int64      `json:"max_size_bytes,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`

	// Uploads is the immutable-append ledger, ordered by submission time.
	Uploads []DocumentUpload `json:"uploads"`
}

// Upload returns the upload with the given ID, or nil.
func (r *DocumentRequest) Upload(id string) *DocumentUpload {
	for i := range r.Uploads {
		if r.Uploads[i].ID == id {
			return &r.Uploads[i]
		}
	}
	return nil
}

// ValidUploadCount counts uploads occupying a quota slot
// (PENDING, IN_REVIEW or APPROVED).
func (r *DocumentRequest) ValidUploadCount() int {
	n := 0
	for i := range r.Uploads {
		if r.Uploads[i].Status.Valid() {
			n++
		}
	}
	return n
}

// ApprovedUploadCount counts APPROVED uploads.
func (r *DocumentRequest) ApprovedUploadCount() int {
	n := 0
	for i := range r.Uploads {
		if r.Uploads[i].Status == UploadApproved {
			n++
		}
	}
	return n
}
