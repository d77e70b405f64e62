package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dossierapi/internal/model"
	notifyMocks "dossierapi/internal/notify/mocks"
	"dossierapi/internal/repository"
	repoMocks "dossierapi/internal/repository/mocks"
	storeMocks "dossierapi/internal/storage/mocks"
	"dossierapi/internal/workflow"
)

var testTemplate = []model.RequestTemplate{
	{
		Title:        "Avis d'imposition",
		DocumentType: "tax_notice",
		Obligatoire:  true,
		QuantiteMin:  1,
		QuantiteMax:  3,
	},
	{
		Title:        "Justificatif de domicile",
		DocumentType: "proof_of_address",
		Obligatoire:  true,
		QuantiteMin:  1,
		QuantiteMax:  1,
	},
}

func newTestService(mRepo *repoMocks.MockDossierRepository, mStore *storeMocks.MockStorage) (DossierService, *notifyMocks.RecordingDispatcher) {
	notif := &notifyMocks.RecordingDispatcher{}
	return NewDossierService(mRepo, mStore, notif, nil), notif
}

func TestDossierService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, _ := newTestService(mRepo, nil)

		mRepo.On("ClientExists", ctx, "client-1").Return(true, nil)
		mRepo.On("CreateDossier", ctx, mock.MatchedBy(func(d *model.Dossier) bool {
			return d.ClientID == "client-1" &&
				d.Status == model.DossierPending &&
				len(d.Requests) == 2 &&
				d.DocumentsRequis == 2 &&
				d.Requests[0].Status == model.RequestAwaiting
		})).Return(func(ctx context.Context, d *model.Dossier) *model.Dossier { return d }, nil)

		d, err := svc.Create(ctx, "client-1", "acct-1", nil, testTemplate)

		require.NoError(t, err)
		assert.Equal(t, 0, d.Pourcentage)
		assert.Equal(t, 2, d.DocumentsRequis)
		mRepo.AssertExpectations(t)
	})

	t.Run("unknown client", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, _ := newTestService(mRepo, nil)

		mRepo.On("ClientExists", ctx, "client-999").Return(false, nil)

		_, err := svc.Create(ctx, "client-999", "acct-1", nil, testTemplate)

		var nf *workflow.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "client", nf.Entity)
	})

	t.Run("invalid quantities", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, _ := newTestService(mRepo, nil)

		bad := []model.RequestTemplate{{Title: "KBIS", DocumentType: "kbis", QuantiteMin: 2, QuantiteMax: 1}}
		_, err := svc.Create(ctx, "client-1", "acct-1", nil, bad)

		assert.Error(t, err)
		mRepo.AssertNotCalled(t, "CreateDossier", mock.Anything, mock.Anything)
	})

	t.Run("empty template", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, _ := newTestService(mRepo, nil)

		_, err := svc.Create(ctx, "client-1", "acct-1", nil, nil)

		assert.ErrorIs(t, err, ErrTemplateRequired)
	})
}

func TestDossierService_CreateBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("failures are isolated per client", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, _ := newTestService(mRepo, nil)

		mRepo.On("ClientExists", mock.Anything, "client-1").Return(true, nil)
		mRepo.On("ClientExists", mock.Anything, "client-2").Return(true, nil)
		mRepo.On("ClientExists", mock.Anything, "client-999").Return(false, nil)
		mRepo.On("CreateDossier", mock.Anything, mock.Anything).
			Return(func(ctx context.Context, d *model.Dossier) *model.Dossier { return d }, nil)

		res, err := svc.CreateBatch(ctx, []string{"client-1", "client-2", "client-999"}, "acct-1", nil, testTemplate)

		require.NoError(t, err)
		assert.Len(t, res.Created, 2)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "client-999", res.Errors[0].ClientID)
		assert.Equal(t, "not found", res.Errors[0].Reason)
	})

	t.Run("empty batch", func(t *testing.T) {
		mRepo := new(repoMocks.MockDossierRepository)
		svc, _ := newTestService(mRepo, nil)

		_, err := svc.CreateBatch(ctx, nil, "acct-1", nil, testTemplate)

		assert.ErrorIs(t, err, ErrClientsRequired)
	})
}

func TestDossierService_List(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDossierRepository)
	svc, _ := newTestService(mRepo, nil)

	mRepo.On("ListDossiersByClient", ctx, "client-1", repository.PageQuery{Limit: 10, Offset: 0}).
		Return(&repository.PageResult[model.Dossier]{
			Items: []model.Dossier{{ID: "dos-1"}},
			Total: 1,
		}, nil)

	// Zero limit falls back to the default page size.
	res, err := svc.List(ctx, "client-1", 0, -1)

	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 1, res.Total)
	mRepo.AssertExpectations(t)
}

func TestDossierService_Get(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDossierRepository)
	svc, _ := newTestService(mRepo, nil)

	t.Run("not found", func(t *testing.T) {
		mRepo.On("FindDossierByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		_, err := svc.Get(ctx, "missing")

		var nf *workflow.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "dossier", nf.Entity)
	})

	t.Run("id required", func(t *testing.T) {
		_, err := svc.Get(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

func TestDossierService_Progress(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDossierRepository)
	svc, _ := newTestService(mRepo, nil)

	stored := &model.Dossier{
		ID:              "dos-1",
		Status:          model.DossierInProgress,
		DocumentsRequis: 4,
		DocumentsUpload: 1,
		Pourcentage:     25,
		CreatedAt:       time.Now().UTC(),
	}
	mRepo.On("FindDossierByID", ctx, "dos-1").Return(stored, nil)

	first, err := svc.Progress(ctx, "dos-1")
	require.NoError(t, err)
	second, err := svc.Progress(ctx, "dos-1")
	require.NoError(t, err)

	// Stability: identical output without a mutation in between.
	assert.Equal(t, first, second)
	assert.Equal(t, 25, first.Pourcentage)
	assert.Equal(t, model.DossierInProgress, first.Status)
}
