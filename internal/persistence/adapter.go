// Package persistence syncs itineraries to the remote backend and keeps a
// local key/value copy as a fallback.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/avi-itinerary/shared/models"
	"go.uber.org/zap"
)

// Remote is the backend the adapter syncs to
type Remote interface {
	Create(ctx context.Context, it models.Itinerary) (string, error)
	Update(ctx context.Context, it models.Itinerary) error
	Get(ctx context.Context, id string) (*models.Itinerary, error)
}

// Adapter combines the remote backend with the local fallback store
type Adapter struct {
	remote Remote
	local  KeyValueStore
	logger *zap.Logger
}

// NewAdapter creates an Adapter
func NewAdapter(remote Remote, local KeyValueStore, logger *zap.Logger) *Adapter {
	return &Adapter{
		remote: remote,
		local:  local,
		logger: logger.Named("persistence"),
	}
}

// Save is the blocking save: it writes the local snapshot and then syncs the
// itinerary remotely. It returns the remote id, which is new when the
// itinerary had none. The itinerary service schedules SaveLocal and
// SaveRemote separately so the remote call runs in the background.
func (a *Adapter) Save(ctx context.Context, it models.Itinerary) (string, error) {
	a.SaveLocal(ctx, it)
	return a.SaveRemote(ctx, it)
}

// SaveLocal writes the snapshot fallback. Failures are logged and dropped.
func (a *Adapter) SaveLocal(ctx context.Context, it models.Itinerary) {
	data, err := json.Marshal(it)
	if err != nil {
		a.logger.Warn("Failed to encode local snapshot", zap.Error(err))
		return
	}
	if err := a.local.Set(ctx, KeySnapshot, string(data)); err != nil {
		a.logger.Warn("Failed to write local snapshot", zap.Error(err))
		return
	}
	if it.IsPersisted() {
		if err := a.local.Set(ctx, KeyCurrentID, *it.ID); err != nil {
			a.logger.Warn("Failed to write local itinerary id", zap.Error(err))
		}
	}
}

// SaveRemote creates the itinerary when it has no id and updates it otherwise.
// Failures are logged and returned wrapped in ErrRemoteSync.
func (a *Adapter) SaveRemote(ctx context.Context, it models.Itinerary) (string, error) {
	if !it.IsPersisted() {
		id, err := a.remote.Create(ctx, it)
		if err != nil {
			a.logger.Warn("Failed to create itinerary remotely", zap.Error(err))
			return "", wrapRemote(err)
		}
		if err := a.local.Set(ctx, KeyCurrentID, id); err != nil {
			a.logger.Warn("Failed to write local itinerary id", zap.Error(err))
		}
		a.logger.Info("Itinerary created remotely", zap.String("itineraryID", id))
		return id, nil
	}

	id := *it.ID
	if err := a.remote.Update(ctx, it); err != nil {
		a.logger.Warn("Failed to update itinerary remotely", zap.String("itineraryID", id), zap.Error(err))
		return id, wrapRemote(err)
	}
	a.logger.Debug("Itinerary updated remotely", zap.String("itineraryID", id))
	return id, nil
}

// Load fetches an itinerary from the backend. An itinerary returned without
// an id takes the requested one, so later saves update it.
func (a *Adapter) Load(ctx context.Context, id string) (*models.Itinerary, error) {
	it, err := a.remote.Get(ctx, id)
	if err != nil {
		a.logger.Warn("Failed to load itinerary", zap.String("itineraryID", id), zap.Error(err))
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, wrapRemote(err)
	}
	if !it.IsPersisted() {
		it.ID = &id
	}
	it.Sanitize()
	return it, nil
}

// LoadLocal decodes the local snapshot fallback
func (a *Adapter) LoadLocal(ctx context.Context) (*models.Itinerary, error) {
	data, err := a.local.Get(ctx, KeySnapshot)
	if err != nil {
		return nil, err
	}
	var it models.Itinerary
	if err := json.Unmarshal([]byte(data), &it); err != nil {
		return nil, fmt.Errorf("failed to decode local snapshot: %w", err)
	}
	it.Sanitize()
	return &it, nil
}

// CurrentID returns the id of the last itinerary saved from this client
func (a *Adapter) CurrentID(ctx context.Context) (string, error) {
	return a.local.Get(ctx, KeyCurrentID)
}

// StageSelectedFlights stores flights picked in the external search flow
// until the itinerary consumes them
func (a *Adapter) StageSelectedFlights(ctx context.Context, flights []models.ExternalFlight) error {
	data, err := json.Marshal(flights)
	if err != nil {
		return fmt.Errorf("failed to encode selected flights: %w", err)
	}
	return a.local.Set(ctx, KeySelectedFlights, string(data))
}

// TakeSelectedFlights returns the staged flights and clears them.
// It returns no flights and no error when nothing is staged.
func (a *Adapter) TakeSelectedFlights(ctx context.Context) ([]models.ExternalFlight, error) {
	data, err := a.local.Get(ctx, KeySelectedFlights)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := a.local.Delete(ctx, KeySelectedFlights); err != nil {
		a.logger.Warn("Failed to clear selected flights", zap.Error(err))
	}

	var flights []models.ExternalFlight
	if err := json.Unmarshal([]byte(data), &flights); err != nil {
		return nil, fmt.Errorf("failed to decode selected flights: %w", err)
	}
	return flights, nil
}

func wrapRemote(err error) error {
	if errors.Is(err, ErrRemoteSync) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRemoteSync, err)
}
