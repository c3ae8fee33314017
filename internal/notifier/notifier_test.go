package notifier

import (
	"testing"
	"time"

	"github.com/cx-tal-miterani/avi-itinerary/internal/events"
	"github.com/cx-tal-miterani/avi-itinerary/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifier_Message(t *testing.T) {
	n := New(zap.NewNop())

	tests := []struct {
		name     string
		event    events.Event
		expected string
		ok       bool
	}{
		{
			name: "flight added",
			event: events.Event{Kind: events.KindBlockAdded, DayTitle: "Day 1 (Arrival)", Block: &models.Block{
				Type: models.BlockTypeFlight, Airline: "LA", FlightNumber: "1234", DepartureAirport: "GRU", ArrivalAirport: "JFK",
			}},
			expected: "Flight LA 1234 from GRU to JFK added to Day 1 (Arrival).",
			ok:       true,
		},
		{
			name: "hotel added",
			event: events.Event{Kind: events.KindBlockAdded, DayTitle: "Day 2", Block: &models.Block{
				Type: models.BlockTypeHotel, Title: "Plaza",
			}},
			expected: "Hotel Plaza added to Day 2.",
			ok:       true,
		},
		{
			name: "activity removed",
			event: events.Event{Kind: events.KindBlockRemoved, DayTitle: "Day 3 (Departure)", Block: &models.Block{
				Type: models.BlockTypeActivity, Title: "MoMA",
			}},
			expected: "Activity MoMA removed from Day 3 (Departure).",
			ok:       true,
		},
		{
			name:     "note added",
			event:    events.Event{Kind: events.KindBlockAdded, DayTitle: "Day 1 (Arrival)", Block: &models.Block{Type: models.BlockTypeNote}},
			expected: "Note added to Day 1 (Arrival).",
			ok:       true,
		},
		{
			name:     "destination updated",
			event:    events.Event{Kind: events.KindDestinationUpdated, Destination: "Lisbon", Count: 3},
			expected: "Itinerary updated for Lisbon: 3 days planned.",
			ok:       true,
		},
		{
			name:     "destination cleared",
			event:    events.Event{Kind: events.KindDestinationUpdated, Count: 1},
			expected: "Itinerary updated: 1 day planned.",
			ok:       true,
		},
		{
			name:     "flights merged",
			event:    events.Event{Kind: events.KindFlightsMerged, DayTitle: "Day 1 (Arrival)", Count: 2},
			expected: "2 flights from your search added to Day 1 (Arrival).",
			ok:       true,
		},
		{
			name:  "active day has no message",
			event: events.Event{Kind: events.KindActiveDayChanged, DayIndex: 1},
		},
		{
			name:  "unknown block type",
			event: events.Event{Kind: events.KindBlockAdded, Block: &models.Block{Type: "cruise"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := n.Message(tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, text)
		})
	}
}

func TestNotifier_WritesToAllSinks(t *testing.T) {
	first := NewMemoryTranscript(0)
	second := NewMemoryTranscript(0)
	n := New(zap.NewNop(), first, second)
	fixed := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	bus := events.NewBus()
	detach := n.Attach(bus)

	bus.Publish(events.Event{Kind: events.KindBlockAdded, DayTitle: "Day 2", Block: &models.Block{Type: models.BlockTypeNote}})
	bus.Publish(events.Event{Kind: events.KindActiveDayChanged, DayIndex: 1})
	detach()
	bus.Publish(events.Event{Kind: events.KindBlockAdded, DayTitle: "Day 2", Block: &models.Block{Type: models.BlockTypeNote}})

	for _, sink := range []*MemoryTranscript{first, second} {
		msgs := sink.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, ChatMessage{
			Role:      RoleAssistant,
			Text:      "Note added to Day 2.",
			Kind:      events.KindBlockAdded,
			Timestamp: fixed,
		}, msgs[0])
	}
}

func TestMemoryTranscript_Limit(t *testing.T) {
	tr := NewMemoryTranscript(2)
	tr.Append(ChatMessage{Text: "a"})
	tr.Append(ChatMessage{Text: "b"})
	tr.Append(ChatMessage{Text: "c"})

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", msgs[0].Text)
	assert.Equal(t, "c", msgs[1].Text)

	msgs[0].Text = "changed"
	assert.Equal(t, "b", tr.Messages()[0].Text)
}
