package model

import "time"

// Dossier is a document-collection folder for one client. It owns an
// ordered set of document requests. Pure domain model, no persistence tags
// beyond JSON; it can cross layers without coupling to the database.
type Dossier struct {
	ID           string        `json:"id"`
	ClientID     string        `json:"client_id"`
	AccountantID string        `json:"accountant_id"`
	Status       DossierStatus `json:"status"`

	// Derived progress counters, recomputed by workflow.Aggregate after
	// every mutation and persisted alongside the status.
	DocumentsRequis int `json:"documents_requis"`
	DocumentsUpload int `json:"documents_upload"`
	Pourcentage     int `json:"pourcentage"`

	CreatedAt         time.Time  `json:"created_at"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	ValidatedAt       *time.Time `json:"validated_at,omitempty"`
	ValidationComment string     `json:"validation_comment,omitempty"`

	Requests []DocumentRequest `json:"requests"`
}

// Request returns the document request with the given ID, or nil.
func (d *Dossier) Request(id string) *DocumentRequest {
	for i := range d.Requests {
		if d.Requests[i].ID == id {
			return &d.Requests[i]
		}
	}
	return nil
}

// UploadRequest returns the request owning the given upload and the upload
// itself, or nils when absent.
func (d *Dossier) UploadRequest(uploadID string) (*DocumentRequest, *DocumentUpload) {
	for i := range d.Requests {
		if u := d.Requests[i].Upload(uploadID); u != nil {
			return &d.Requests[i], u
		}
	}
	return nil, nil
}

// Progress is the read model returned by the progress endpoint.
type Progress struct {
	DossierID       string        `json:"dossier_id"`
	DocumentsRequis int           `json:"documents_requis"`
	DocumentsUpload int           `json:"documents_upload"`
	Pourcentage     int           `json:"pourcentage"`
	Status          DossierStatus `json:"status"`
}

// RequestTemplate describes one document request to create inside a new
// dossier. The same template list is reused for every client in a batch.
type RequestTemplate struct {
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	DocumentType    string     `json:"document_type"`
	Obligatoire     bool       `json:"obligatoire"`
	QuantiteMin     int        `json:"quantite_min"`
	QuantiteMax     int        `json:"quantite_max"`
	AcceptedFormats []string   `json:"accepted_formats,omitempty"`
	MaxSizeBytes    int64      `json:"max_size_bytes,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
}
