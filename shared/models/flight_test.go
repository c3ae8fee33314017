package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gruToJFK() ExternalFlight {
	return ExternalFlight{
		ID:    "f1",
		Price: ExternalPrice{Total: "500.00", Currency: "BRL"},
		Itineraries: []ExternalFlightItinerary{
			{Segments: []ExternalSegment{
				{
					Departure:   ExternalEndpoint{IataCode: "GRU", At: "2024-03-10T08:00:00"},
					Arrival:     ExternalEndpoint{IataCode: "JFK", At: "2024-03-10T20:00:00"},
					CarrierCode: "LA",
					Number:      "1234",
				},
			}},
		},
	}
}

func TestFlightBlockFromExternal_Success(t *testing.T) {
	b, err := FlightBlockFromExternal(gruToJFK())

	require.NoError(t, err)
	assert.Equal(t, BlockTypeFlight, b.Type)
	assert.Equal(t, "Flight LA 1234", b.Title)
	assert.Equal(t, 500.00, b.Price)
	assert.Equal(t, "BRL", b.Currency)
	assert.Equal(t, "GRU", b.DepartureAirport)
	assert.Equal(t, "JFK", b.ArrivalAirport)
	assert.Equal(t, "2024-03-10T08:00:00", b.DepartureTime)
	assert.Equal(t, "2024-03-10T20:00:00", b.ArrivalTime)
	assert.Len(t, b.Segments, 1)
	assert.Empty(t, b.ID)
}

func TestFlightBlockFromExternal_UsesOutboundOnly(t *testing.T) {
	f := gruToJFK()
	f.Itineraries[0].Segments = append(f.Itineraries[0].Segments, ExternalSegment{
		Departure:   ExternalEndpoint{IataCode: "JFK", At: "2024-03-10T22:00:00"},
		Arrival:     ExternalEndpoint{IataCode: "BOS", At: "2024-03-10T23:30:00"},
		CarrierCode: "AA",
		Number:      "55",
	})
	f.Itineraries = append(f.Itineraries, ExternalFlightItinerary{Segments: []ExternalSegment{
		{
			Departure:   ExternalEndpoint{IataCode: "BOS", At: "2024-03-20T10:00:00"},
			Arrival:     ExternalEndpoint{IataCode: "GRU", At: "2024-03-21T01:00:00"},
			CarrierCode: "LA",
			Number:      "999",
		},
	}})

	b, err := FlightBlockFromExternal(f)

	require.NoError(t, err)
	assert.Equal(t, "GRU", b.DepartureAirport)
	assert.Equal(t, "BOS", b.ArrivalAirport)
	assert.Equal(t, "2024-03-10T23:30:00", b.ArrivalTime)
	assert.Len(t, b.Segments, 2)
}

func TestFlightBlockFromExternal_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *ExternalFlight)
	}{
		{"no itineraries", func(f *ExternalFlight) { f.Itineraries = nil }},
		{"no segments", func(f *ExternalFlight) { f.Itineraries[0].Segments = nil }},
		{"missing carrier", func(f *ExternalFlight) { f.Itineraries[0].Segments[0].CarrierCode = "" }},
		{"missing arrival airport", func(f *ExternalFlight) { f.Itineraries[0].Segments[0].Arrival.IataCode = "" }},
		{"missing price", func(f *ExternalFlight) { f.Price.Total = "" }},
		{"bad price", func(f *ExternalFlight) { f.Price.Total = "five hundred" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := gruToJFK()
			tt.mutate(&f)

			_, err := FlightBlockFromExternal(f)
			assert.ErrorIs(t, err, ErrMalformedExternalFlight)
		})
	}
}
