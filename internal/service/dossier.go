package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dossierapi/internal/model"
	"dossierapi/internal/notify"
	"dossierapi/internal/repository"
	"dossierapi/internal/storage"
	"dossierapi/internal/workflow"
)

var (
	ErrIDRequired        = errors.New("id is required")
	ErrTemplateRequired  = errors.New("at least one request template is required")
	ErrClientsRequired   = errors.New("at least one client id is required")
	ErrNoFiles           = errors.New("at least one file is required")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file exceeds the request size limit")
)

// batchConcurrency bounds how many dossier creations run at once during a
// batch. Creations are independent per client, so the limit is purely about
// not flooding the database.
const batchConcurrency = 8

// FileInput is one file handed to SubmitUploads.
type FileInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// SubmitResult reports which uploads were recorded and, for a partially or
// fully refused batch, the quota detail.
type SubmitResult struct {
	Accepted []model.DocumentUpload       `json:"accepted"`
	Rejected *workflow.QuotaExceededError `json:"rejected,omitempty"`
}

// BatchError is one failed creation inside a batch.
type BatchError struct {
	ClientID string `json:"client_id"`
	Reason   string `json:"reason"`
}

// BatchResult is the aggregate outcome of CreateBatch: successes and
// per-client failures side by side.
type BatchResult struct {
	Created []model.Dossier `json:"created"`
	Errors  []BatchError    `json:"errors"`
}

// DossierListResult is the service-level DTO for paginated dossiers.
type DossierListResult struct {
	Items []model.Dossier `json:"data"`
	Total int             `json:"total"`
}

// DossierService defines the use cases around dossiers: creation, lookup,
// upload submission, accountant decisions and final archival.
type DossierService interface {
	// Create builds one dossier for a client from a request-template list.
	Create(ctx context.Context, clientID, accountantID string, dueDate *time.Time, tmpl []model.RequestTemplate) (*model.Dossier, error)

	// CreateBatch attempts one independent creation per client. Failures
	// are isolated; the result reports both successes and failures.
	CreateBatch(ctx context.Context, clientIDs []string, accountantID string, dueDate *time.Time, tmpl []model.RequestTemplate) (*BatchResult, error)

	// List returns a client's dossiers using limit/offset and a total count.
	List(ctx context.Context, clientID string, limit, offset int) (*DossierListResult, error)

	// Get returns a single dossier aggregate by its ID.
	Get(ctx context.Context, id string) (*model.Dossier, error)

	// Progress returns the persisted progress counters for a dossier.
	Progress(ctx context.Context, id string) (*model.Progress, error)

	// SubmitUploads stores the file bytes, then records the uploads against
	// the request under the quota rules. Refused files are removed from
	// storage again.
	SubmitUploads(ctx context.Context, requestID, actorID string, files []FileInput) (*SubmitResult, error)

	// DecideUpload applies an accountant decision to one upload.
	DecideUpload(ctx context.Context, uploadID, actorID string, decision model.Decision, comment string) (*model.DocumentUpload, error)

	// Finalize archives a COMPLETE dossier.
	Finalize(ctx context.Context, dossierID, actorID, comment string) (*model.Dossier, error)

	// UploadURL returns a presigned download URL for an upload's file.
	UploadURL(ctx context.Context, uploadID string) (string, error)
}

// dossierService is a concrete implementation of DossierService.
type dossierService struct {
	repo    repository.DossierRepository
	store   storage.Storage
	notif   notify.Dispatcher
	metrics *Metrics
}

// NewDossierService constructs a new DossierService. metrics may be nil.
func NewDossierService(repo repository.DossierRepository, store storage.Storage, notif notify.Dispatcher, metrics *Metrics) DossierService {
	if notif == nil {
		notif = notify.NewLogDispatcher()
	}
	return &dossierService{repo: repo, store: store, notif: notif, metrics: metrics}
}

func (s *dossierService) Create(ctx context.Context, clientID, accountantID string, dueDate *time.Time, tmpl []model.RequestTemplate) (*model.Dossier, error) {
	if clientID == "" || accountantID == "" {
		return nil, ErrIDRequired
	}
	if len(tmpl) == 0 {
		return nil, ErrTemplateRequired
	}
	for _, t := range tmpl {
		if t.QuantiteMin < 1 || t.QuantiteMax < t.QuantiteMin {
			return nil, fmt.Errorf("template %q: quantities must satisfy 1 <= min <= max", t.Title)
		}
	}

	exists, err := s.repo.ClientExists(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("check client: %w", err)
	}
	if !exists {
		return nil, &workflow.NotFoundError{Entity: "client", ID: clientID}
	}

	now := time.Now().UTC()
	d := &model.Dossier{
		ID:           uuid.New().String(),
		ClientID:     clientID,
		AccountantID: accountantID,
		Status:       model.DossierPending,
		CreatedAt:    now,
		DueDate:      dueDate,
	}
	for i, t := range tmpl {
		d.Requests = append(d.Requests, model.DocumentRequest{
			ID:              uuid.New().String(),
			DossierID:       d.ID,
			Position:        i,
			Title:           t.Title,
			Description:     t.Description,
			DocumentType:    t.DocumentType,
			Obligatoire:     t.Obligatoire,
			QuantiteMin:     t.QuantiteMin,
			QuantiteMax:     t.QuantiteMax,
			Status:          model.RequestAwaiting,
			AcceptedFormats: t.AcceptedFormats,
			MaxSizeBytes:    t.MaxSizeBytes,
			DueDate:         t.DueDate,
		})
	}
	workflow.Aggregate(d, now)

	stored, err := s.repo.CreateDossier(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("create dossier: %w", err)
	}
	return stored, nil
}

// CreateBatch runs one creation per client with bounded concurrency. There
// is no cross-client coordination: a failure for one client never rolls
// back another's dossier.
func (s *dossierService) CreateBatch(ctx context.Context, clientIDs []string, accountantID string, dueDate *time.Time, tmpl []model.RequestTemplate) (*BatchResult, error) {
	if len(clientIDs) == 0 {
		return nil, ErrClientsRequired
	}

	type outcome struct {
		dossier *model.Dossier
		err     error
	}
	outcomes := make([]outcome, len(clientIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, clientID := range clientIDs {
		g.Go(func() error {
			d, err := s.Create(gctx, clientID, accountantID, dueDate, tmpl)
			outcomes[i] = outcome{dossier: d, err: err}
			return nil
		})
	}
	_ = g.Wait()

	res := &BatchResult{Created: []model.Dossier{}, Errors: []BatchError{}}
	for i, o := range outcomes {
		if o.err != nil {
			res.Errors = append(res.Errors, BatchError{
				ClientID: clientIDs[i],
				Reason:   batchReason(o.err),
			})
			continue
		}
		res.Created = append(res.Created, *o.dossier)
	}
	return res, nil
}

func batchReason(err error) string {
	var nf *workflow.NotFoundError
	if errors.As(err, &nf) {
		return "not found"
	}
	return err.Error()
}

// List returns paginated dossiers without exposing repository types.
func (s *dossierService) List(ctx context.Context, clientID string, limit, offset int) (*DossierListResult, error) {
	if clientID == "" {
		return nil, ErrIDRequired
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.ListDossiersByClient(ctx, clientID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DossierListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a dossier aggregate by ID.
func (s *dossierService) Get(ctx context.Context, id string) (*model.Dossier, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	d, err := s.repo.FindDossierByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &workflow.NotFoundError{Entity: "dossier", ID: id}
		}
		return nil, err
	}
	return d, nil
}

// Progress reads the persisted derived counters. They are recomputed on
// every mutation, so two reads without a mutation in between are identical.
func (s *dossierService) Progress(ctx context.Context, id string) (*model.Progress, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.Progress{
		DossierID:       d.ID,
		DocumentsRequis: d.DocumentsRequis,
		DocumentsUpload: d.DocumentsUpload,
		Pourcentage:     d.Pourcentage,
		Status:          d.Status,
	}, nil
}
