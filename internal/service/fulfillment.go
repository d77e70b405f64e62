package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"dossierapi/internal/model"
	"dossierapi/internal/notify"
	"dossierapi/internal/storage"
	"dossierapi/internal/workflow"
)

const presignExpiry = 15 * time.Minute

// SubmitUploads stores the file bytes first, then evaluates the Quota Guard
// and appends to the upload ledger as one atomic step inside the
// repository's per-dossier critical section. Files the guard refuses are
// deleted from storage again, as are all of them when the transaction
// fails.
//
// When the batch exceeds capacity but some slots remain, the first allowed
// files are recorded and the result carries both the accepted uploads and
// the quota detail. When no slot remains, it returns the
// *workflow.QuotaExceededError alone.
func (s *dossierService) SubmitUploads(ctx context.Context, requestID, actorID string, files []FileInput) (*SubmitResult, error) {
	if requestID == "" {
		return nil, ErrIDRequired
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	d, err := s.repo.FindDossierByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &workflow.NotFoundError{Entity: "request", ID: requestID}
		}
		return nil, err
	}
	req := d.Request(requestID)
	if req == nil {
		return nil, &workflow.NotFoundError{Entity: "request", ID: requestID}
	}
	// Reject before storing any byte; the locked check below is the
	// authoritative one.
	if err := workflow.EnsureMutable(d); err != nil {
		return nil, err
	}

	for _, f := range files {
		if err := checkFileConstraints(req, f); err != nil {
			return nil, err
		}
	}

	refs, err := s.storeFiles(ctx, d.ID, files)
	if err != nil {
		return nil, err
	}

	var (
		accepted []model.DocumentUpload
		quotaErr *workflow.QuotaExceededError
	)
	now := time.Now().UTC()
	_, err = s.repo.MutateDossierByRequest(ctx, requestID, func(d *model.Dossier) error {
		if err := workflow.EnsureMutable(d); err != nil {
			return err
		}
		req := d.Request(requestID)
		if req == nil {
			return &workflow.NotFoundError{Entity: "request", ID: requestID}
		}

		adm, admErr := workflow.CanAccept(req, len(refs))
		if admErr != nil {
			if !errors.As(admErr, &quotaErr) {
				return admErr
			}
			if adm.Allowed == 0 {
				return quotaErr
			}
		}

		recorded, recErr := workflow.Record(req, adm, refs[:adm.Allowed], actorID, now)
		if recErr != nil {
			return recErr
		}
		accepted = recorded
		workflow.Aggregate(d, now)
		return nil
	})
	if err != nil {
		// Nothing was recorded: remove every stored object.
		s.discardFiles(ctx, refs)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &workflow.NotFoundError{Entity: "request", ID: requestID}
		}
		var qe *workflow.QuotaExceededError
		if errors.As(err, &qe) && s.metrics != nil {
			s.metrics.QuotaRejections.Inc()
		}
		return nil, err
	}

	// Remove the refused remainder of a partially accepted batch.
	s.discardFiles(ctx, refs[len(accepted):])

	if s.metrics != nil {
		s.metrics.UploadsAccepted.Add(float64(len(accepted)))
		if quotaErr != nil {
			s.metrics.QuotaRejections.Inc()
		}
	}
	for _, up := range accepted {
		s.notif.Dispatch(ctx, notify.Event{
			Type:      notify.EventUploadReceived,
			DossierID: d.ID,
			RequestID: requestID,
			UploadID:  up.ID,
			ActorID:   actorID,
		})
	}

	return &SubmitResult{Accepted: accepted, Rejected: quotaErr}, nil
}

// DecideUpload applies an accountant decision inside the per-dossier
// critical section and re-derives the owning request and dossier. Repeating
// a decision is a no-op and triggers no duplicate notifications.
func (s *dossierService) DecideUpload(ctx context.Context, uploadID, actorID string, decision model.Decision, comment string) (*model.DocumentUpload, error) {
	if uploadID == "" {
		return nil, ErrIDRequired
	}
	if decision != model.DecisionApprove && decision != model.DecisionReject {
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	var (
		result  model.DocumentUpload
		changed bool
		events  []notify.Event
	)
	now := time.Now().UTC()
	_, err := s.repo.MutateDossierByUpload(ctx, uploadID, func(d *model.Dossier) error {
		if err := workflow.EnsureMutable(d); err != nil {
			return err
		}
		req, up := d.UploadRequest(uploadID)
		if up == nil {
			return &workflow.NotFoundError{Entity: "upload", ID: uploadID}
		}

		statusBefore := req.Status
		var decErr error
		changed, decErr = workflow.Decide(req, up, decision, comment, now)
		if decErr != nil {
			return decErr
		}
		dossierBefore := d.Status
		workflow.Aggregate(d, now)
		result = *up

		if !changed {
			return nil
		}
		evType := notify.EventUploadApproved
		if decision == model.DecisionReject {
			evType = notify.EventUploadRejected
		}
		events = append(events, notify.Event{
			Type:      evType,
			DossierID: d.ID,
			RequestID: req.ID,
			UploadID:  uploadID,
			ActorID:   actorID,
			Comment:   comment,
		})
		if statusBefore != model.RequestApproved && req.Status == model.RequestApproved {
			events = append(events, notify.Event{
				Type:      notify.EventRequestApproved,
				DossierID: d.ID,
				RequestID: req.ID,
				ActorID:   actorID,
			})
		}
		if dossierBefore != model.DossierComplete && d.Status == model.DossierComplete {
			events = append(events, notify.Event{
				Type:      notify.EventDossierComplete,
				DossierID: d.ID,
				ActorID:   actorID,
			})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &workflow.NotFoundError{Entity: "upload", ID: uploadID}
		}
		return nil, err
	}

	if changed && s.metrics != nil {
		s.metrics.Decisions.WithLabelValues(string(decision)).Inc()
	}
	for _, ev := range events {
		s.notif.Dispatch(ctx, ev)
	}
	return &result, nil
}

// Finalize re-derives the dossier state and archives it when COMPLETE.
func (s *dossierService) Finalize(ctx context.Context, dossierID, actorID, comment string) (*model.Dossier, error) {
	if dossierID == "" {
		return nil, ErrIDRequired
	}

	now := time.Now().UTC()
	d, err := s.repo.MutateDossier(ctx, dossierID, func(d *model.Dossier) error {
		for i := range d.Requests {
			d.Requests[i].Status = workflow.DeriveRequestStatus(&d.Requests[i], now)
		}
		workflow.Aggregate(d, now)
		return workflow.Finalize(d, comment, now)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &workflow.NotFoundError{Entity: "dossier", ID: dossierID}
		}
		return nil, err
	}

	s.notif.Dispatch(ctx, notify.Event{
		Type:      notify.EventDossierFinalized,
		DossierID: d.ID,
		ActorID:   actorID,
		Comment:   comment,
	})
	return d, nil
}

// UploadURL returns a presigned, time-limited download URL for the upload's
// stored object.
func (s *dossierService) UploadURL(ctx context.Context, uploadID string) (string, error) {
	if uploadID == "" {
		return "", ErrIDRequired
	}
	d, err := s.repo.FindDossierByUploadID(ctx, uploadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", &workflow.NotFoundError{Entity: "upload", ID: uploadID}
		}
		return "", err
	}
	_, up := d.UploadRequest(uploadID)
	if up == nil {
		return "", &workflow.NotFoundError{Entity: "upload", ID: uploadID}
	}
	return s.store.PresignGet(ctx, up.File.StoragePath, presignExpiry)
}

// storeFiles streams every file to object storage and returns the metadata
// refs. On any failure the already stored objects are deleted.
func (s *dossierService) storeFiles(ctx context.Context, dossierID string, files []FileInput) ([]model.FileRef, error) {
	refs := make([]model.FileRef, 0, len(files))
	for _, f := range files {
		fileID := uuid.New().String()
		key := storage.UploadKey(dossierID, fileID, filepath.Ext(f.Filename))

		info, err := s.store.Put(ctx, key, f.Reader, storage.PutObjectOptions{
			Size:        f.Size,
			ContentType: f.ContentType,
			Metadata: map[string]string{
				"original-filename": f.Filename,
			},
		})
		if err != nil {
			s.discardFiles(ctx, refs)
			return nil, fmt.Errorf("upload to storage: %w", err)
		}
		refs = append(refs, model.FileRef{
			ID:          fileID,
			Name:        f.Filename,
			Size:        info.Size,
			ContentType: f.ContentType,
			StoragePath: info.Key,
		})
	}
	return refs, nil
}

func (s *dossierService) discardFiles(ctx context.Context, refs []model.FileRef) {
	for _, ref := range refs {
		// Best effort: a leaked object is preferable to failing the call.
		_ = s.store.Delete(ctx, ref.StoragePath)
	}
}

// checkFileConstraints enforces the request's accepted-format and max-size
// rules before any byte is stored.
func checkFileConstraints(req *model.DocumentRequest, f FileInput) error {
	if req.MaxSizeBytes > 0 && f.Size > req.MaxSizeBytes {
		return fmt.Errorf("%s: %w", f.Filename, ErrFileTooLarge)
	}
	if len(req.AcceptedFormats) == 0 {
		return nil
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Filename)), ".")
	for _, accepted := range req.AcceptedFormats {
		if ext == strings.ToLower(accepted) {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", f.Filename, ErrUnsupportedFormat)
}
