package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"dossierapi/internal/model"
	"dossierapi/internal/service"
)

type MockDossierService struct {
	mock.Mock
}

func (m *MockDossierService) Create(ctx context.Context, clientID, accountantID string, dueDate *time.Time, tmpl []model.RequestTemplate) (*model.Dossier, error) {
	args := m.Called(ctx, clientID, accountantID, dueDate, tmpl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dossier), args.Error(1)
}

func (m *MockDossierService) CreateBatch(ctx context.Context, clientIDs []string, accountantID string, dueDate *time.Time, tmpl []model.RequestTemplate) (*service.BatchResult, error) {
	args := m.Called(ctx, clientIDs, accountantID, dueDate, tmpl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

func (m *MockDossierService) List(ctx context.Context, clientID string, limit, offset int) (*service.DossierListResult, error) {
	args := m.Called(ctx, clientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DossierListResult), args.Error(1)
}

func (m *MockDossierService) Get(ctx context.Context, id string) (*model.Dossier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dossier), args.Error(1)
}

func (m *MockDossierService) Progress(ctx context.Context, id string) (*model.Progress, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Progress), args.Error(1)
}

func (m *MockDossierService) SubmitUploads(ctx context.Context, requestID, actorID string, files []service.FileInput) (*service.SubmitResult, error) {
	args := m.Called(ctx, requestID, actorID, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitResult), args.Error(1)
}

func (m *MockDossierService) DecideUpload(ctx context.Context, uploadID, actorID string, decision model.Decision, comment string) (*model.DocumentUpload, error) {
	args := m.Called(ctx, uploadID, actorID, decision, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentUpload), args.Error(1)
}

func (m *MockDossierService) Finalize(ctx context.Context, dossierID, actorID, comment string) (*model.Dossier, error) {
	args := m.Called(ctx, dossierID, actorID, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dossier), args.Error(1)
}

func (m *MockDossierService) UploadURL(ctx context.Context, uploadID string) (string, error) {
	args := m.Called(ctx, uploadID)
	return args.String(0), args.Error(1)
}
