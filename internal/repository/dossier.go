package repository

import (
	"context"

	"dossierapi/internal/model"
)

// MutateFunc is applied to a dossier aggregate loaded under the write lock.
// Returning an error aborts the transaction without persisting anything.
type MutateFunc func(d *model.Dossier) error

// DossierRepository defines data access for dossier aggregates using SQL
// queries only. No business logic here — strictly persistence operations.
//
// The Mutate* methods implement the per-request critical section required by
// the fulfillment rules: they load the full aggregate under a row lock on
// the owning dossier, apply fn, and persist the resulting state in the same
// transaction. Quota evaluation and ledger appends therefore never
// interleave for uploads of the same dossier.
type DossierRepository interface {
	// CreateDossier inserts a dossier together with its document requests.
	CreateDossier(ctx context.Context, d *model.Dossier) (*model.Dossier, error)

	// FindDossierByID returns the full aggregate (requests and uploads).
	FindDossierByID(ctx context.Context, id string) (*model.Dossier, error)

	// FindDossierByRequestID returns the aggregate owning the given request.
	FindDossierByRequestID(ctx context.Context, requestID string) (*model.Dossier, error)

	// FindDossierByUploadID returns the aggregate owning the given upload.
	FindDossierByUploadID(ctx context.Context, uploadID string) (*model.Dossier, error)

	// ListDossiersByClient returns a paginated list for one client together
	// with the total row count.
	ListDossiersByClient(ctx context.Context, clientID string, pq PageQuery) (*PageResult[model.Dossier], error)

	// MutateDossier locks the dossier row, applies fn and persists.
	MutateDossier(ctx context.Context, dossierID string, fn MutateFunc) (*model.Dossier, error)

	// MutateDossierByRequest resolves the owning dossier of a request and
	// behaves like MutateDossier.
	MutateDossierByRequest(ctx context.Context, requestID string, fn MutateFunc) (*model.Dossier, error)

	// MutateDossierByUpload resolves the owning dossier of an upload and
	// behaves like MutateDossier.
	MutateDossierByUpload(ctx context.Context, uploadID string, fn MutateFunc) (*model.Dossier, error)

	// ClientExists reports whether a client row exists.
	ClientExists(ctx context.Context, clientID string) (bool, error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
