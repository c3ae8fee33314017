package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedExternalFlight is returned when an external flight lacks the
// fields needed to build a Flight block
var ErrMalformedExternalFlight = errors.New("malformed external flight")

// FlightSegment represents one leg of a flight block
type FlightSegment struct {
	Airline          string `json:"airline"`
	FlightNumber     string `json:"flightNumber"`
	DepartureAirport string `json:"departureAirport"`
	ArrivalAirport   string `json:"arrivalAirport"`
	DepartureTime    string `json:"departureTime"`
	ArrivalTime      string `json:"arrivalTime"`
}

// ExternalFlight is a flight offer selected in the external search flow
type ExternalFlight struct {
	ID          string                    `json:"id"`
	Price       ExternalPrice             `json:"price"`
	Itineraries []ExternalFlightItinerary `json:"itineraries"`
}

type ExternalPrice struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type ExternalFlightItinerary struct {
	Segments []ExternalSegment `json:"segments"`
}

type ExternalSegment struct {
	Departure   ExternalEndpoint `json:"departure"`
	Arrival     ExternalEndpoint `json:"arrival"`
	CarrierCode string           `json:"carrierCode"`
	Number      string           `json:"number"`
}

type ExternalEndpoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

// FlightBlockFromExternal maps the outbound itinerary of an external flight
// to a Flight block. Only Itineraries[0] is used. The returned block has no id.
func FlightBlockFromExternal(f ExternalFlight) (Block, error) {
	if len(f.Itineraries) == 0 {
		return Block{}, fmt.Errorf("%w: flight %q has no itineraries", ErrMalformedExternalFlight, f.ID)
	}
	outbound := f.Itineraries[0].Segments
	if len(outbound) == 0 {
		return Block{}, fmt.Errorf("%w: flight %q has no outbound segments", ErrMalformedExternalFlight, f.ID)
	}

	segments := make([]FlightSegment, 0, len(outbound))
	for i, s := range outbound {
		if s.CarrierCode == "" || s.Number == "" || s.Departure.IataCode == "" || s.Arrival.IataCode == "" {
			return Block{}, fmt.Errorf("%w: flight %q segment %d is incomplete", ErrMalformedExternalFlight, f.ID, i)
		}
		segments = append(segments, FlightSegment{
			Airline:          s.CarrierCode,
			FlightNumber:     s.Number,
			DepartureAirport: s.Departure.IataCode,
			ArrivalAirport:   s.Arrival.IataCode,
			DepartureTime:    s.Departure.At,
			ArrivalTime:      s.Arrival.At,
		})
	}

	total := strings.TrimSpace(f.Price.Total)
	if total == "" {
		return Block{}, fmt.Errorf("%w: flight %q has no price", ErrMalformedExternalFlight, f.ID)
	}
	price, err := strconv.ParseFloat(total, 64)
	if err != nil {
		return Block{}, fmt.Errorf("%w: flight %q price %q: %v", ErrMalformedExternalFlight, f.ID, total, err)
	}

	first, last := segments[0], segments[len(segments)-1]
	b := Block{
		Type:             BlockTypeFlight,
		Airline:          first.Airline,
		FlightNumber:     first.FlightNumber,
		DepartureAirport: first.DepartureAirport,
		ArrivalAirport:   last.ArrivalAirport,
		DepartureTime:    first.DepartureTime,
		ArrivalTime:      last.ArrivalTime,
		Price:            price,
		Currency:         f.Price.Currency,
		Segments:         segments,
	}
	b.Normalize()
	return b, nil
}
