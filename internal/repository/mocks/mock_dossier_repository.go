package mocks

import (
	"context"

	"dossierapi/internal/model"
	"dossierapi/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockDossierRepository struct {
	mock.Mock
}

func (m *MockDossierRepository) CreateDossier(ctx context.Context, d *model.Dossier) (*model.Dossier, error) {
	args := m.Called(ctx, d)
	if f, ok := args.Get(0).(func(context.Context, *model.Dossier) *model.Dossier); ok {
		return f(ctx, d), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dossier), args.Error(1)
}

func (m *MockDossierRepository) FindDossierByID(ctx context.Context, id string) (*model.Dossier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dossier), args.Error(1)
}

func (m *MockDossierRepository) FindDossierByRequestID(ctx context.Context, requestID string) (*model.Dossier, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dossier), args.Error(1)
}

func (m *MockDossierRepository) FindDossierByUploadID(ctx context.Context, uploadID string) (*model.Dossier, error) {
	args := m.Called(ctx, uploadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dossier), args.Error(1)
}

func (m *MockDossierRepository) ListDossiersByClient(ctx context.Context, clientID string, pq repository.PageQuery) (*repository.PageResult[model.Dossier], error) {
	args := m.Called(ctx, clientID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Dossier]), args.Error(1)
}

// mutate runs fn against the dossier stubbed as first return value, the way
// the real implementation applies it to the loaded aggregate. Stub an error
// (or a nil dossier) to simulate load failures.
func (m *MockDossierRepository) mutate(args mock.Arguments, fn repository.MutateFunc) (*model.Dossier, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	d := args.Get(0).(*model.Dossier)
	if err := fn(d); err != nil {
		return nil, err
	}
	return d, args.Error(1)
}

func (m *MockDossierRepository) MutateDossier(ctx context.Context, dossierID string, fn repository.MutateFunc) (*model.Dossier, error) {
	return m.mutate(m.Called(ctx, dossierID, fn), fn)
}

func (m *MockDossierRepository) MutateDossierByRequest(ctx context.Context, requestID string, fn repository.MutateFunc) (*model.Dossier, error) {
	return m.mutate(m.Called(ctx, requestID, fn), fn)
}

func (m *MockDossierRepository) MutateDossierByUpload(ctx context.Context, uploadID string, fn repository.MutateFunc) (*model.Dossier, error) {
	return m.mutate(m.Called(ctx, uploadID, fn), fn)
}

func (m *MockDossierRepository) ClientExists(ctx context.Context, clientID string) (bool, error) {
	args := m.Called(ctx, clientID)
	return args.Bool(0), args.Error(1)
}
