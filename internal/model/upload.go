package model

import "time"

// FileRef points at an object held by the external file store. Bytes are
// never duplicated into the core; only this metadata is kept.
type FileRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	StoragePath string `json:"storage_path"`
}

// DocumentUpload is one client-submitted file recorded against a document
// request. Rows are append-only; only Status, ReviewComment and DecidedAt
// change after insertion, and Status moves forward only.
type DocumentUpload struct {
	ID            string       `json:"id"`
	RequestID     string       `json:"request_id"`
	File          FileRef      `json:"file"`
	SubmittedBy   string       `json:"submitted_by"`
	SubmittedAt   time.Time    `json:"submitted_at"`
	Status        UploadStatus `json:"status"`
	ReviewComment string       `json:"review_comment,omitempty"`
	DecidedAt     *time.Time   `json:"decided_at,omitempty"`
}
