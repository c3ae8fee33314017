package mocks

import (
	"context"

	"github.com/cx-tal-miterani/avi-itinerary/internal/render"
	"github.com/cx-tal-miterani/avi-itinerary/internal/service"
	"github.com/cx-tal-miterani/avi-itinerary/shared/models"
	"github.com/stretchr/testify/mock"
)

// MockItineraryService is a mock implementation of ItineraryService
type MockItineraryService struct {
	mock.Mock
}

func (m *MockItineraryService) AddBlock(ctx context.Context, block models.Block, dayIndex int) (*models.Block, error) {
	args := m.Called(ctx, block, dayIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Block), args.Error(1)
}

func (m *MockItineraryService) RemoveBlock(ctx context.Context, blockID string, dayIndex int) error {
	args := m.Called(ctx, blockID, dayIndex)
	return args.Error(0)
}

func (m *MockItineraryService) UpdateDestination(ctx context.Context, update service.DestinationUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func (m *MockItineraryService) MergeExternalFlights(ctx context.Context, flights []models.ExternalFlight) (int, error) {
	args := m.Called(ctx, flights)
	return args.Int(0), args.Error(1)
}

func (m *MockItineraryService) SetActiveDay(index int) {
	m.Called(index)
}

func (m *MockItineraryService) ToggleBlock(blockID string) (bool, error) {
	args := m.Called(blockID)
	return args.Bool(0), args.Error(1)
}

func (m *MockItineraryService) View() render.View {
	args := m.Called()
	return args.Get(0).(render.View)
}

func (m *MockItineraryService) Snapshot() models.Itinerary {
	args := m.Called()
	return args.Get(0).(models.Itinerary)
}

func (m *MockItineraryService) Bootstrap(ctx context.Context) service.LoadSource {
	args := m.Called(ctx)
	return args.Get(0).(service.LoadSource)
}

func (m *MockItineraryService) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPersister is a mock implementation of service.Persister
type MockPersister struct {
	mock.Mock
}

func (m *MockPersister) SaveLocal(ctx context.Context, it models.Itinerary) {
	m.Called(ctx, it)
}

func (m *MockPersister) SaveRemote(ctx context.Context, it models.Itinerary) (string, error) {
	args := m.Called(ctx, it)
	return args.String(0), args.Error(1)
}

func (m *MockPersister) Load(ctx context.Context, id string) (*models.Itinerary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Itinerary), args.Error(1)
}

func (m *MockPersister) LoadLocal(ctx context.Context) (*models.Itinerary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Itinerary), args.Error(1)
}

func (m *MockPersister) CurrentID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPersister) TakeSelectedFlights(ctx context.Context) ([]models.ExternalFlight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ExternalFlight), args.Error(1)
}
