package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cx-tal-miterani/avi-itinerary/internal/events"
	"github.com/cx-tal-miterani/avi-itinerary/internal/planner"
	"github.com/cx-tal-miterani/avi-itinerary/internal/render"
	"github.com/cx-tal-miterani/avi-itinerary/shared/models"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// MaxTripDays bounds the number of days derived from a date range
const MaxTripDays = 365

const DefaultSaveTimeout = 10 * time.Second

var (
	ErrIndexOutOfRange  = errors.New("day index out of range")
	ErrBlockNotFound    = errors.New("block not found")
	ErrInvalidBlockType = errors.New("invalid block type")
	ErrDateRangeTooLong = errors.New("date range too long")
)

// LoadSource tells where Bootstrap found the itinerary
type LoadSource string

const (
	LoadSourceRemote LoadSource = "remote"
	LoadSourceLocal  LoadSource = "local"
	LoadSourceNew    LoadSource = "new"
)

// DestinationUpdate carries the trip header fields
type DestinationUpdate struct {
	Destination string      `json:"destination"`
	StartDate   *civil.Date `json:"startDate"`
	EndDate     *civil.Date `json:"endDate"`
	Travelers   int         `json:"travelers"`
}

// Persister stores itineraries locally and remotely
type Persister interface {
	SaveLocal(ctx context.Context, it models.Itinerary)
	SaveRemote(ctx context.Context, it models.Itinerary) (string, error)
	Load(ctx context.Context, id string) (*models.Itinerary, error)
	LoadLocal(ctx context.Context) (*models.Itinerary, error)
	CurrentID(ctx context.Context) (string, error)
	TakeSelectedFlights(ctx context.Context) ([]models.ExternalFlight, error)
}

// ItineraryService defines the itinerary controller interface
type ItineraryService interface {
	AddBlock(ctx context.Context, block models.Block, dayIndex int) (*models.Block, error)
	RemoveBlock(ctx context.Context, blockID string, dayIndex int) error
	UpdateDestination(ctx context.Context, update DestinationUpdate) error
	MergeExternalFlights(ctx context.Context, flights []models.ExternalFlight) (int, error)
	SetActiveDay(index int)
	ToggleBlock(blockID string) (bool, error)
	View() render.View
	Snapshot() models.Itinerary
	Bootstrap(ctx context.Context) LoadSource
	Flush(ctx context.Context) error
}

// Config tunes the itinerary service
type Config struct {
	// SaveTimeout bounds each background remote save
	SaveTimeout time.Duration
	// OnViewChange receives the rendered view after every change.
	// It runs while the service is locked and must not call back into it.
	OnViewChange func(render.View)
}

// itineraryServiceImpl implements ItineraryService
type itineraryServiceImpl struct {
	mu        sync.Mutex
	itinerary *models.Itinerary
	ui        render.UIState

	store  Persister
	bus    *events.Bus
	logger *zap.Logger
	cfg    Config
	saves  inflight
}

// NewItineraryService creates a service holding a fresh itinerary.
// Call Bootstrap to restore a saved one.
func NewItineraryService(store Persister, bus *events.Bus, logger *zap.Logger, cfg Config) ItineraryService {
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}
	return &itineraryServiceImpl{
		itinerary: models.NewItinerary(),
		ui:        render.UIState{Expanded: make(map[string]bool)},
		store:     store,
		bus:       bus,
		logger:    logger.Named("itinerary"),
		cfg:       cfg,
	}
}

func (s *itineraryServiceImpl) AddBlock(ctx context.Context, block models.Block, dayIndex int) (*models.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.itinerary.HasDay(dayIndex) {
		s.logger.Warn("Add block rejected", zap.Int("dayIndex", dayIndex), zap.Int("days", len(s.itinerary.Days)))
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, dayIndex)
	}
	if !block.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBlockType, block.Type)
	}

	if block.ID == "" {
		block.ID = models.NewBlockID(block.Type)
	}
	block.Normalize()

	day := &s.itinerary.Days[dayIndex]
	day.Blocks = append(day.Blocks, block)
	s.ui.ActiveDay = dayIndex

	added := block.Clone()
	s.changed(ctx, events.Event{
		Kind:     events.KindBlockAdded,
		DayIndex: dayIndex,
		DayTitle: day.Title,
		Block:    &added,
	})

	s.logger.Info("Block added", zap.String("blockID", block.ID), zap.String("type", string(block.Type)), zap.Int("dayIndex", dayIndex))
	out := block.Clone()
	return &out, nil
}

func (s *itineraryServiceImpl) RemoveBlock(ctx context.Context, blockID string, dayIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.itinerary.HasDay(dayIndex) {
		s.logger.Warn("Remove block rejected", zap.Int("dayIndex", dayIndex), zap.Int("days", len(s.itinerary.Days)))
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, dayIndex)
	}

	day := &s.itinerary.Days[dayIndex]
	removed, i, ok := lo.FindIndexOf(day.Blocks, func(b models.Block) bool { return b.ID == blockID })
	if !ok {
		s.logger.Warn("Remove block rejected", zap.String("blockID", blockID), zap.Int("dayIndex", dayIndex))
		return fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}

	day.Blocks = slices.Delete(day.Blocks, i, i+1)
	delete(s.ui.Expanded, blockID)
	s.ui.ActiveDay = dayIndex

	s.changed(ctx, events.Event{
		Kind:     events.KindBlockRemoved,
		DayIndex: dayIndex,
		DayTitle: day.Title,
		Block:    &removed,
	})

	s.logger.Info("Block removed", zap.String("blockID", blockID), zap.Int("dayIndex", dayIndex))
	return nil
}

func (s *itineraryServiceImpl) UpdateDestination(ctx context.Context, update DestinationUpdate) error {
	start := update.StartDate
	end := update.EndDate
	if start == nil {
		end = nil
	}
	if start != nil && end != nil && end.Before(*start) {
		clamped := *start
		end = &clamped
	}
	if start != nil && planner.DayCount(*start, end) > MaxTripDays {
		return fmt.Errorf("%w: %s to %s exceeds %d days", ErrDateRangeTooLong, start, end, MaxTripDays)
	}

	travelers := update.Travelers
	if travelers < 1 {
		travelers = models.DefaultTravelers
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.itinerary
	it.Destination = update.Destination
	it.StartDate = cloneDate(start)
	it.EndDate = cloneDate(end)
	it.Travelers = travelers

	if dropped := planner.RecomputeDays(it); dropped > 0 {
		s.logger.Warn("Blocks dropped by date change", zap.Int("dropped", dropped), zap.Stringp("startDate", dateString(it.StartDate)))
	}
	s.pruneUIState()

	s.changed(ctx, events.Event{
		Kind:        events.KindDestinationUpdated,
		DayIndex:    s.ui.ActiveDay,
		Destination: it.Destination,
		Count:       len(it.Days),
	})

	s.logger.Info("Destination updated", zap.String("destination", it.Destination), zap.Int("days", len(it.Days)), zap.Int("travelers", travelers))
	return nil
}

func (s *itineraryServiceImpl) MergeExternalFlights(ctx context.Context, flights []models.ExternalFlight) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeFlights(ctx, flights)
}

func (s *itineraryServiceImpl) mergeFlights(ctx context.Context, flights []models.ExternalFlight) (int, error) {
	if !s.itinerary.HasDay(0) {
		return 0, fmt.Errorf("%w: 0", ErrIndexOutOfRange)
	}

	day := &s.itinerary.Days[0]
	added := make([]models.Block, 0, len(flights))
	for _, f := range flights {
		block, err := models.FlightBlockFromExternal(f)
		if err != nil {
			s.logger.Warn("Skipping external flight", zap.String("flightID", f.ID), zap.Error(err))
			continue
		}
		block.ID = models.NewBlockID(models.BlockTypeFlight)
		day.Blocks = append(day.Blocks, block)
		added = append(added, block)
	}
	if len(added) == 0 {
		return 0, nil
	}

	for _, b := range added {
		b := b.Clone()
		s.bus.Publish(events.Event{Kind: events.KindBlockAdded, DayIndex: 0, DayTitle: day.Title, Block: &b})
	}
	s.changed(ctx, events.Event{
		Kind:     events.KindFlightsMerged,
		DayIndex: 0,
		DayTitle: day.Title,
		Count:    len(added),
	})

	s.logger.Info("External flights merged", zap.Int("added", len(added)), zap.Int("skipped", len(flights)-len(added)))
	return len(added), nil
}

func (s *itineraryServiceImpl) SetActiveDay(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.itinerary.HasDay(index) {
		s.logger.Warn("Ignoring invalid active day", zap.Int("dayIndex", index), zap.Int("days", len(s.itinerary.Days)))
		return
	}
	if s.ui.ActiveDay == index {
		return
	}
	s.ui.ActiveDay = index

	s.bus.Publish(events.Event{
		Kind:     events.KindActiveDayChanged,
		DayIndex: index,
		DayTitle: s.itinerary.Days[index].Title,
	})
	s.refreshView()
}

func (s *itineraryServiceImpl) ToggleBlock(blockID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := lo.ContainsBy(s.itinerary.Days, func(d models.Day) bool {
		return lo.ContainsBy(d.Blocks, func(b models.Block) bool { return b.ID == blockID })
	})
	if !found {
		return false, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}

	expanded := !s.ui.Expanded[blockID]
	if expanded {
		s.ui.Expanded[blockID] = true
	} else {
		delete(s.ui.Expanded, blockID)
	}
	s.refreshView()
	return expanded, nil
}

func (s *itineraryServiceImpl) View() render.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return render.Render(*s.itinerary, s.ui)
}

func (s *itineraryServiceImpl) Snapshot() models.Itinerary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itinerary.Clone()
}

// Bootstrap restores the itinerary saved from this client: first the
// remote copy recorded in the local id, then the local snapshot, otherwise
// a fresh itinerary. Flights staged by the search flow are merged afterwards.
func (s *itineraryServiceImpl) Bootstrap(ctx context.Context) LoadSource {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, source := s.load(ctx)
	if dropped := planner.RecomputeDays(it); dropped > 0 {
		s.logger.Warn("Snapshot days did not match its dates", zap.String("source", string(source)), zap.Int("dropped", dropped))
	}
	s.itinerary = it
	s.ui = render.UIState{Expanded: make(map[string]bool)}

	id := ""
	if it.IsPersisted() {
		id = *it.ID
	}
	s.logger.Info("Itinerary loaded", zap.String("source", string(source)), zap.String("itineraryID", id), zap.Int("days", len(it.Days)), zap.Int("blocks", it.BlockCount()))

	flights, err := s.store.TakeSelectedFlights(ctx)
	if err != nil {
		s.logger.Warn("Failed to read selected flights", zap.Error(err))
	}
	if len(flights) > 0 {
		if _, err := s.mergeFlights(ctx, flights); err != nil {
			s.logger.Warn("Failed to merge selected flights", zap.Error(err))
		}
		return source
	}

	s.refreshView()
	return source
}

func (s *itineraryServiceImpl) load(ctx context.Context) (*models.Itinerary, LoadSource) {
	if id, err := s.store.CurrentID(ctx); err == nil && id != "" {
		it, err := s.store.Load(ctx, id)
		if err == nil {
			return it, LoadSourceRemote
		}
		s.logger.Warn("Falling back to local snapshot", zap.String("itineraryID", id), zap.Error(err))
	}

	it, err := s.store.LoadLocal(ctx)
	if err == nil {
		return it, LoadSourceLocal
	}
	s.logger.Info("Starting a new itinerary", zap.Error(err))
	return models.NewItinerary(), LoadSourceNew
}

// Flush waits for background saves started so far
func (s *itineraryServiceImpl) Flush(ctx context.Context) error {
	return s.saves.wait(ctx)
}

// changed publishes e, pushes the new view and schedules persistence.
// Callers hold s.mu.
func (s *itineraryServiceImpl) changed(ctx context.Context, e events.Event) {
	s.refreshView()
	s.bus.Publish(e)
	s.persist(ctx)
}

func (s *itineraryServiceImpl) refreshView() {
	if s.cfg.OnViewChange != nil {
		s.cfg.OnViewChange(render.Render(*s.itinerary, s.ui))
	}
}

// persist writes the local snapshot now and syncs remotely in the
// background. Remote saves are neither ordered nor cancelled.
func (s *itineraryServiceImpl) persist(ctx context.Context) {
	snapshot := s.itinerary.Clone()
	bg := context.WithoutCancel(ctx)
	s.store.SaveLocal(bg, snapshot)

	s.saves.add()
	go func() {
		defer s.saves.done()

		saveCtx, cancel := context.WithTimeout(bg, s.cfg.SaveTimeout)
		defer cancel()

		id, err := s.store.SaveRemote(saveCtx, snapshot)
		if err != nil || id == "" || snapshot.IsPersisted() {
			return
		}
		s.adoptID(bg, id)
	}()
}

// adoptID records the id assigned by the first remote save
func (s *itineraryServiceImpl) adoptID(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.itinerary.IsPersisted() {
		if *s.itinerary.ID != id {
			s.logger.Warn("Itinerary already has a remote id", zap.String("itineraryID", *s.itinerary.ID), zap.String("ignoredID", id))
		}
		return
	}
	s.itinerary.ID = &id
	s.store.SaveLocal(ctx, s.itinerary.Clone())
}

// pruneUIState clamps the active day and forgets toggles of removed blocks
func (s *itineraryServiceImpl) pruneUIState() {
	if !s.itinerary.HasDay(s.ui.ActiveDay) {
		s.ui.ActiveDay = 0
	}
	present := make(map[string]bool)
	for _, d := range s.itinerary.Days {
		for _, b := range d.Blocks {
			present[b.ID] = true
		}
	}
	for id := range s.ui.Expanded {
		if !present[id] {
			delete(s.ui.Expanded, id)
		}
	}
}

func cloneDate(d *civil.Date) *civil.Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func dateString(d *civil.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
