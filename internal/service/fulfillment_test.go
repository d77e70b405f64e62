package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dossierapi/internal/model"
	"dossierapi/internal/notify"
	repoMocks "dossierapi/internal/repository/mocks"
	"dossierapi/internal/storage"
	storeMocks "dossierapi/internal/storage/mocks"
	"dossierapi/internal/workflow"
)

func fulfillmentDossier(min, max int, statuses ...model.UploadStatus) *model.Dossier {
	d := &model.Dossier{
		ID:           "dos-1",
		ClientID:     "client-1",
		AccountantID: "acct-1",
		Status:       model.DossierPending,
		CreatedAt:    time.Now().UTC().Add(-time.Hour),
		Requests: []model.DocumentRequest{
			{
				ID:           "req-1",
				DossierID:    "dos-1",
				Title:        "RIB",
				DocumentType: "bank_details",
				Obligatoire:  true,
				QuantiteMin:  min,
				QuantiteMax:  max,
				Status:       model.RequestAwaiting,
			},
		},
	}
	base := time.Now().UTC().Add(-30 * time.Minute)
	for i, st := range statuses {
		d.Requests[0].Uploads = append(d.Requests[0].Uploads, model.DocumentUpload{
			ID:          "up-" + string(rune('a'+i)),
			RequestID:   "req-1",
			File:        model.FileRef{ID: "f-" + string(rune('a'+i)), StoragePath: "dossiers/dos-1/f.pdf"},
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
			Status:      st,
		})
	}
	d.Requests[0].Status = workflow.DeriveRequestStatus(&d.Requests[0], time.Now().UTC())
	workflow.Aggregate(d, time.Now().UTC())
	return d
}

func expectPut(mStore *storeMocks.MockStorage, times int) {
	mStore.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "dossiers/dos-1/")
	}), mock.Anything, mock.Anything).
		Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			return storage.ObjectInfo{Key: key, Size: opt.Size}
		}, nil).Times(times)
}

func TestDossierService_SubmitUploads(t *testing.T) {
	ctx := context.Background()

	files := func(names ...string) []FileInput {
		var fs []FileInput
		for _, n := range names {
			fs = append(fs, FileInput{Reader: strings.NewReader("content"), Filename: n, ContentType: "application/pdf", Size: 7})
		}
		return fs
	}

	t.Run("happy path records and notifies", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		mStore := new(storeMocks.MockStorage)
		svc, notif := newTestService(mRepo, mStore)

		d := fulfillmentDossier(1, 3)
		mRepo.On("FindDossierByRequestID", ctx, "req-1").Return(d, nil)
		expectPut(mStore, 2)
		mRepo.On("MutateDossierByRequest", ctx, "req-1", mock.Anything).Return(fulfillmentDossier(1, 3), nil)

		res, err := svc.SubmitUploads(ctx, "req-1", "client-1", files("rib.pdf", "rib2.pdf"))

		require.NoError(t, err)
		assert.Len(t, res.Accepted, 2)
		assert.Nil(t, res.Rejected)
		assert.Equal(t, 2, notif.Count(notify.EventUploadReceived))
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("full quota rejects and rolls back storage", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		mStore := new(storeMocks.MockStorage)
		svc, notif := newTestService(mRepo, mStore)

		full := fulfillmentDossier(1, 1, model.UploadPending)
		mRepo.On("FindDossierByRequestID", ctx, "req-1").Return(full, nil)
		expectPut(mStore, 1)
		mStore.On("Delete", ctx, mock.Anything).Return(nil).Once()
		mRepo.On("MutateDossierByRequest", ctx, "req-1", mock.Anything).Return(fulfillmentDossier(1, 1, model.UploadPending), nil)

		_, err := svc.SubmitUploads(ctx, "req-1", "client-1", files("rib.pdf"))

		var qe *workflow.QuotaExceededError
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, 0, qe.Allowed)
		assert.Equal(t, 1, qe.Requested)
		assert.Zero(t, notif.Count(notify.EventUploadReceived))
		mStore.AssertExpectations(t)
	})

	t.Run("partial accept keeps allowed files and discards the rest", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		mStore := new(storeMocks.MockStorage)
		svc, notif := newTestService(mRepo, mStore)

		d := fulfillmentDossier(1, 2, model.UploadApproved)
		mRepo.On("FindDossierByRequestID", ctx, "req-1").Return(d, nil)
		expectPut(mStore, 2)
		mStore.On("Delete", ctx, mock.Anything).Return(nil).Once()
		mRepo.On("MutateDossierByRequest", ctx, "req-1", mock.Anything).Return(fulfillmentDossier(1, 2, model.UploadApproved), nil)

		res, err := svc.SubmitUploads(ctx, "req-1", "client-1", files("a.pdf", "b.pdf"))

		require.NoError(t, err)
		assert.Len(t, res.Accepted, 1)
		require.NotNil(t, res.Rejected)
		assert.Equal(t, 1, res.Rejected.Allowed)
		assert.Equal(t, 2, res.Rejected.Requested)
		assert.Equal(t, 1, notif.Count(notify.EventUploadReceived))
		mStore.AssertExpectations(t)
	})

	t.Run("replacement of a rejected upload", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		mStore := new(storeMocks.MockStorage)
		svc, _ := newTestService(mRepo, mStore)

		d := fulfillmentDossier(1, 1, model.UploadRejected)
		locked := fulfillmentDossier(1, 1, model.UploadRejected)
		mRepo.On("FindDossierByRequestID", ctx, "req-1").Return(d, nil)
		expectPut(mStore, 1)
		mRepo.On("MutateDossierByRequest", ctx, "req-1", mock.Anything).Return(locked, nil)

		res, err := svc.SubmitUploads(ctx, "req-1", "client-1", files("rib.pdf"))

		require.NoError(t, err)
		assert.Len(t, res.Accepted, 1)
		assert.Equal(t, model.UploadReplaced, locked.Requests[0].Uploads[0].Status)
		assert.Equal(t, 1, locked.Requests[0].ValidUploadCount())
	})

	t.Run("unsupported format stores nothing", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		mStore := new(storeMocks.MockStorage)
		svc, _ := newTestService(mRepo, mStore)

		d := fulfillmentDossier(1, 3)
		d.Requests[0].AcceptedFormats = []string{"pdf"}
		mRepo.On("FindDossierByRequestID", ctx, "req-1").Return(d, nil)

		_, err := svc.SubmitUploads(ctx, "req-1", "client-1", files("photo.png"))

		assert.ErrorIs(t, err, ErrUnsupportedFormat)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("oversized file stores nothing", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		mStore := new(storeMocks.MockStorage)
		svc, _ := newTestService(mRepo, mStore)

		d := fulfillmentDossier(1, 3)
		d.Requests[0].MaxSizeBytes = 3
		mRepo.On("FindDossierByRequestID", ctx, "req-1").Return(d, nil)

		_, err := svc.SubmitUploads(ctx, "req-1", "client-1", files("rib.pdf"))

		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("validated dossier refuses new uploads", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		mStore := new(storeMocks.MockStorage)
		svc, notif := newTestService(mRepo, mStore)

		d := fulfillmentDossier(1, 3, model.UploadApproved)
		require.NoError(t, workflow.Finalize(d, "complet", time.Now().UTC()))
		mRepo.On("FindDossierByRequestID", ctx, "req-1").Return(d, nil)

		_, err := svc.SubmitUploads(ctx, "req-1", "client-1", files("late.pdf"))

		var ist *workflow.InvalidStateTransitionError
		require.ErrorAs(t, err, &ist)
		assert.Equal(t, string(model.DossierValidated), ist.From)
		assert.Zero(t, notif.Count(notify.EventUploadReceived))
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("finalized while files were uploading", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		mStore := new(storeMocks.MockStorage)
		svc, _ := newTestService(mRepo, mStore)

		d := fulfillmentDossier(1, 3)
		locked := fulfillmentDossier(1, 3, model.UploadApproved)
		require.NoError(t, workflow.Finalize(locked, "", time.Now().UTC()))
		mRepo.On("FindDossierByRequestID", ctx, "req-1").Return(d, nil)
		expectPut(mStore, 1)
		mStore.On("Delete", ctx, mock.Anything).Return(nil).Once()
		mRepo.On("MutateDossierByRequest", ctx, "req-1", mock.Anything).Return(locked, nil)

		_, err := svc.SubmitUploads(ctx, "req-1", "client-1", files("late.pdf"))

		var ist *workflow.InvalidStateTransitionError
		require.ErrorAs(t, err, &ist)
		assert.Len(t, locked.Requests[0].Uploads, 1)
		mStore.AssertExpectations(t)
	})

	t.Run("no files", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, _ := newTestService(mRepo, nil)

		_, err := svc.SubmitUploads(ctx, "req-1", "client-1", nil)

		assert.ErrorIs(t, err, ErrNoFiles)
	})
}

func TestDossierService_DecideUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("approval completes request and dossier", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, notif := newTestService(mRepo, nil)

		d := fulfillmentDossier(1, 3, model.UploadPending)
		mRepo.On("MutateDossierByUpload", ctx, "up-a", mock.Anything).Return(d, nil)

		up, err := svc.DecideUpload(ctx, "up-a", "acct-1", model.DecisionApprove, "ok")

		require.NoError(t, err)
		assert.Equal(t, model.UploadApproved, up.Status)
		assert.Equal(t, model.RequestApproved, d.Requests[0].Status)
		assert.Equal(t, model.DossierComplete, d.Status)
		assert.Equal(t, 1, notif.Count(notify.EventUploadApproved))
		assert.Equal(t, 1, notif.Count(notify.EventRequestApproved))
		assert.Equal(t, 1, notif.Count(notify.EventDossierComplete))
	})

	t.Run("idempotent repeat triggers no duplicate notifications", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, notif := newTestService(mRepo, nil)

		d := fulfillmentDossier(1, 3, model.UploadPending)
		mRepo.On("MutateDossierByUpload", ctx, "up-a", mock.Anything).Return(d, nil)

		first, err := svc.DecideUpload(ctx, "up-a", "acct-1", model.DecisionApprove, "ok")
		require.NoError(t, err)
		second, err := svc.DecideUpload(ctx, "up-a", "acct-1", model.DecisionApprove, "ok")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, notif.Count(notify.EventUploadApproved))
		assert.Equal(t, 1, notif.Count(notify.EventRequestApproved))
	})

	t.Run("rejection reopens the dossier", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, notif := newTestService(mRepo, nil)

		d := fulfillmentDossier(2, 3, model.UploadApproved, model.UploadPending)
		mRepo.On("MutateDossierByUpload", ctx, "up-b", mock.Anything).Return(d, nil)

		up, err := svc.DecideUpload(ctx, "up-b", "acct-1", model.DecisionReject, "illisible")

		require.NoError(t, err)
		assert.Equal(t, model.UploadRejected, up.Status)
		assert.Equal(t, "illisible", up.ReviewComment)
		assert.Equal(t, model.RequestReceived, d.Requests[0].Status)
		assert.Equal(t, 1, notif.Count(notify.EventUploadRejected))
		assert.Zero(t, notif.Count(notify.EventRequestApproved))
	})

	t.Run("conflicting decision fails", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, _ := newTestService(mRepo, nil)

		d := fulfillmentDossier(1, 3, model.UploadRejected)
		mRepo.On("MutateDossierByUpload", ctx, "up-a", mock.Anything).Return(d, nil)

		_, err := svc.DecideUpload(ctx, "up-a", "acct-1", model.DecisionApprove, "")

		var ist *workflow.InvalidStateTransitionError
		assert.ErrorAs(t, err, &ist)
	})

	t.Run("validated dossier refuses decisions", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, notif := newTestService(mRepo, nil)

		// Archived dossier carrying a leftover PENDING upload.
		d := fulfillmentDossier(1, 3, model.UploadApproved, model.UploadPending)
		d.Status = model.DossierValidated
		mRepo.On("MutateDossierByUpload", ctx, "up-b", mock.Anything).Return(d, nil)

		_, err := svc.DecideUpload(ctx, "up-b", "acct-1", model.DecisionReject, "trop tard")

		var ist *workflow.InvalidStateTransitionError
		require.ErrorAs(t, err, &ist)
		assert.Equal(t, string(model.DossierValidated), ist.From)
		assert.Equal(t, model.UploadPending, d.Requests[0].Uploads[1].Status)
		assert.Zero(t, notif.Count(notify.EventUploadRejected))
	})

	t.Run("unknown decision", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, _ := newTestService(mRepo, nil)

		_, err := svc.DecideUpload(ctx, "up-a", "acct-1", model.Decision("MAYBE"), "")

		assert.Error(t, err)
	})
}

func TestDossierService_Finalize(t *testing.T) {
	ctx := context.Background()

	t.Run("complete dossier validates", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, notif := newTestService(mRepo, nil)

		d := fulfillmentDossier(1, 3, model.UploadApproved)
		mRepo.On("MutateDossier", ctx, "dos-1", mock.Anything).Return(d, nil)

		out, err := svc.Finalize(ctx, "dos-1", "acct-1", "dossier complet")

		require.NoError(t, err)
		assert.Equal(t, model.DossierValidated, out.Status)
		assert.NotNil(t, out.ValidatedAt)
		assert.Equal(t, 1, notif.Count(notify.EventDossierFinalized))
	})

	t.Run("incomplete dossier refuses", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, notif := newTestService(mRepo, nil)

		d := fulfillmentDossier(1, 3, model.UploadPending)
		mRepo.On("MutateDossier", ctx, "dos-1", mock.Anything).Return(d, nil)

		_, err := svc.Finalize(ctx, "dos-1", "acct-1", "")

		var ist *workflow.InvalidStateTransitionError
		require.ErrorAs(t, err, &ist)
		assert.Equal(t, "dossier", ist.Entity)
		assert.Zero(t, notif.Count(notify.EventDossierFinalized))
	})

	t.Run("double finalize", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, _ := newTestService(mRepo, nil)

		d := fulfillmentDossier(1, 3, model.UploadApproved)
		mRepo.On("MutateDossier", ctx, "dos-1", mock.Anything).Return(d, nil)

		_, err := svc.Finalize(ctx, "dos-1", "acct-1", "")
		require.NoError(t, err)
		_, err = svc.Finalize(ctx, "dos-1", "acct-1", "")

		var af *workflow.AlreadyFinalizedError
		require.ErrorAs(t, err, &af)
		assert.Equal(t, "dos-1", af.DossierID)
	})
}

func TestDossierService_UploadURL(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDossierRepository)
	mStore := new(storeMocks.MockStorage)
	svc, _ := newTestService(mRepo, mStore)

	d := fulfillmentDossier(1, 3, model.UploadPending)
	mRepo.On("FindDossierByUploadID", ctx, "up-a").Return(d, nil)
	mStore.On("PresignGet", ctx, d.Requests[0].Uploads[0].File.StoragePath, presignExpiry).
		Return("https://minio.local/signed", nil)

	url, err := svc.UploadURL(ctx, "up-a")

	require.NoError(t, err)
	assert.Equal(t, "https://minio.local/signed", url)
	mStore.AssertExpectations(t)
}
