package model

// Canonical status vocabularies. Presentation layers must consume these
// values as-is; they are derived fields, never hand-set (see workflow).

// DossierStatus is the aggregate state of a dossier.
type DossierStatus string

const (
	DossierPending    DossierStatus = "PENDING"
	DossierInProgress DossierStatus = "IN_PROGRESS"
	DossierComplete   DossierStatus = "COMPLETE"
	DossierValidated  DossierStatus = "VALIDATED"
)

// RequestStatus is the derived state of a document request.
type RequestStatus string

const (
	RequestAwaiting                 RequestStatus = "AWAITING"
	RequestReceived                 RequestStatus = "RECEIVED"
	RequestApproved                 RequestStatus = "APPROVED"
	RequestRejectedNeedsReplacement RequestStatus = "REJECTED_NEEDS_REPLACEMENT"
	RequestExpired                  RequestStatus = "EXPIRED"
)

// UploadStatus is the state of a single submitted file.
// An upload only ever moves forward: PENDING/IN_REVIEW -> APPROVED or
// REJECTED, and REJECTED -> REPLACED once a replacement is recorded.
type UploadStatus string

const (
	UploadPending  UploadStatus = "PENDING"
	UploadInReview UploadStatus = "IN_REVIEW"
	UploadApproved UploadStatus = "APPROVED"
	UploadRejected UploadStatus = "REJECTED"
	UploadReplaced UploadStatus = "REPLACED"
)

// Valid reports whether the upload currently counts against the request
// quota. REJECTED and REPLACED uploads do not occupy a slot.
func (s UploadStatus) Valid() bool {
	return s == UploadPending || s == UploadInReview || s == UploadApproved
}

// Decision is an accountant's verdict on an upload.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)
