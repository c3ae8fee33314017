package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cx-tal-miterani/avi-itinerary/internal/geo"
	"github.com/cx-tal-miterani/avi-itinerary/internal/notifier"
	"github.com/cx-tal-miterani/avi-itinerary/internal/render"
	"github.com/cx-tal-miterani/avi-itinerary/internal/service"
	"github.com/cx-tal-miterani/avi-itinerary/shared/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// TranscriptReader exposes the chat lines written so far
type TranscriptReader interface {
	Messages() []notifier.ChatMessage
}

// Handler contains HTTP handlers for the API
type Handler struct {
	itineraryService service.ItineraryService
	locator          geo.Locator
	transcript       TranscriptReader
	logger           *zap.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(itineraryService service.ItineraryService, locator geo.Locator, transcript TranscriptReader, logger *zap.Logger) *Handler {
	return &Handler{
		itineraryService: itineraryService,
		locator:          locator,
		transcript:       transcript,
		logger:           logger.Named("handlers"),
	}
}

// Request and response bodies

type BlockResponse struct {
	Block *models.Block `json:"block"`
	View  render.View   `json:"view"`
}

type MergeFlightsRequest struct {
	Flights []models.ExternalFlight `json:"flights"`
}

type MergeFlightsResponse struct {
	Added int         `json:"added"`
	View  render.View `json:"view"`
}

type ActiveDayRequest struct {
	DayIndex *int `json:"dayIndex"`
}

type ToggleResponse struct {
	Expanded bool        `json:"expanded"`
	View     render.View `json:"view"`
}

type LocateResponse struct {
	Found       bool             `json:"found"`
	Coordinates *geo.Coordinates `json:"coordinates,omitempty"`
	Notice      string           `json:"notice,omitempty"`
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// respondServiceError maps controller errors to status codes
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrIndexOutOfRange):
		respondError(w, http.StatusBadRequest, "Day not found")
	case errors.Is(err, service.ErrBlockNotFound):
		respondError(w, http.StatusNotFound, "Block not found")
	case errors.Is(err, service.ErrInvalidBlockType):
		respondError(w, http.StatusBadRequest, "Invalid block type")
	case errors.Is(err, service.ErrDateRangeTooLong):
		respondError(w, http.StatusBadRequest, "Date range too long")
	default:
		h.logger.Error("Unexpected service error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal error")
	}
}

func dayIndex(r *http.Request) (int, bool) {
	day, err := strconv.Atoi(mux.Vars(r)["day"])
	return day, err == nil
}

// GetItinerary handles GET /api/itinerary
func (h *Handler) GetItinerary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.itineraryService.View())
}

// GetSnapshot handles GET /api/itinerary/snapshot
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.itineraryService.Snapshot())
}

// UpdateDestination handles PUT /api/itinerary/destination
func (h *Handler) UpdateDestination(w http.ResponseWriter, r *http.Request) {
	var req service.DestinationUpdate
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Destination = strings.TrimSpace(req.Destination)

	if err := h.itineraryService.UpdateDestination(r.Context(), req); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.itineraryService.View())
}

// AddBlock handles POST /api/itinerary/days/{day}/blocks
func (h *Handler) AddBlock(w http.ResponseWriter, r *http.Request) {
	day, ok := dayIndex(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid day index")
		return
	}

	var block models.Block
	if err := decodeBody(w, r, &block); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if block.Type == "" {
		respondError(w, http.StatusBadRequest, "Block type is required")
		return
	}

	added, err := h.itineraryService.AddBlock(r.Context(), block, day)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, BlockResponse{Block: added, View: h.itineraryService.View()})
}

// RemoveBlock handles DELETE /api/itinerary/days/{day}/blocks/{blockId}
func (h *Handler) RemoveBlock(w http.ResponseWriter, r *http.Request) {
	day, ok := dayIndex(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid day index")
		return
	}
	blockID := mux.Vars(r)["blockId"]

	if err := h.itineraryService.RemoveBlock(r.Context(), blockID, day); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.itineraryService.View())
}

// MergeFlights handles POST /api/itinerary/flights
func (h *Handler) MergeFlights(w http.ResponseWriter, r *http.Request) {
	var req MergeFlightsRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Flights) == 0 {
		respondError(w, http.StatusBadRequest, "At least one flight is required")
		return
	}

	added, err := h.itineraryService.MergeExternalFlights(r.Context(), req.Flights)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, MergeFlightsResponse{Added: added, View: h.itineraryService.View()})
}

// SetActiveDay handles PUT /api/itinerary/active-day
func (h *Handler) SetActiveDay(w http.ResponseWriter, r *http.Request) {
	var req ActiveDayRequest
	if err := decodeBody(w, r, &req); err != nil || req.DayIndex == nil {
		respondError(w, http.StatusBadRequest, "Day index is required")
		return
	}

	h.itineraryService.SetActiveDay(*req.DayIndex)
	respondJSON(w, http.StatusOK, h.itineraryService.View())
}

// ToggleBlock handles POST /api/itinerary/blocks/{blockId}/toggle
func (h *Handler) ToggleBlock(w http.ResponseWriter, r *http.Request) {
	expanded, err := h.itineraryService.ToggleBlock(mux.Vars(r)["blockId"])
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ToggleResponse{Expanded: expanded, View: h.itineraryService.View()})
}

// Locate handles GET /api/locate?q=
func (h *Handler) Locate(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "Query is required")
		return
	}

	coords, err := h.locator.Lookup(r.Context(), query)
	if err != nil {
		respondJSON(w, http.StatusOK, LocateResponse{Notice: geo.Notice(err)})
		return
	}
	respondJSON(w, http.StatusOK, LocateResponse{Found: true, Coordinates: &coords})
}

// GetTranscript handles GET /api/chat/transcript
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.transcript.Messages())
}
