package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BlockType is the discriminant of a Block
type BlockType string

const (
	BlockTypeFlight   BlockType = "flight"
	BlockTypeHotel    BlockType = "hotel"
	BlockTypeActivity BlockType = "activity"
	BlockTypeNote     BlockType = "note"
)

// Valid reports whether t is one of the known block types
func (t BlockType) Valid() bool {
	switch t {
	case BlockTypeFlight, BlockTypeHotel, BlockTypeActivity, BlockTypeNote:
		return true
	}
	return false
}

const (
	MinStars = 0
	MaxStars = 5
)

// Block is a single content item attached to one Day.
// Only the fields of its Type are meaningful; the rest stay zero and are
// omitted from the snapshot.
type Block struct {
	ID    string    `json:"id"`
	Type  BlockType `json:"type"`
	Title string    `json:"title"`

	// Flight
	Airline          string          `json:"airline,omitempty"`
	FlightNumber     string          `json:"flightNumber,omitempty"`
	DepartureAirport string          `json:"departureAirport,omitempty"`
	ArrivalAirport   string          `json:"arrivalAirport,omitempty"`
	DepartureTime    string          `json:"departureTime,omitempty"`
	ArrivalTime      string          `json:"arrivalTime,omitempty"`
	Segments         []FlightSegment `json:"segments,omitempty"`

	// Hotel and Activity
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`

	// Hotel
	Stars         int     `json:"stars,omitempty"`
	CheckIn       string  `json:"checkIn,omitempty"`
	CheckOut      string  `json:"checkOut,omitempty"`
	PricePerNight float64 `json:"pricePerNight,omitempty"`

	// Activity
	Datetime string `json:"datetime,omitempty"`
	Notes    string `json:"notes,omitempty"`

	// Note
	Content string `json:"content,omitempty"`

	// Flight and Activity
	Price    float64 `json:"price,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

// NewBlockID generates a block id that is unique for the lifetime of an itinerary
func NewBlockID(t BlockType) string {
	prefix := string(t)
	if prefix == "" {
		prefix = "block"
	}
	return prefix + "-" + uuid.New().String()
}

// Normalize clamps type-specific values and derives the display title
func (b *Block) Normalize() {
	if b.Stars < MinStars {
		b.Stars = MinStars
	}
	if b.Stars > MaxStars {
		b.Stars = MaxStars
	}
	b.Title = b.DeriveTitle()
}

// DeriveTitle returns the type-specific display label
func (b *Block) DeriveTitle() string {
	switch b.Type {
	case BlockTypeFlight:
		return strings.TrimSpace(fmt.Sprintf("Flight %s %s", b.Airline, b.FlightNumber))
	case BlockTypeHotel, BlockTypeActivity:
		if b.Name != "" {
			return b.Name
		}
		if b.Type == BlockTypeHotel {
			return "Hotel"
		}
		return "Activity"
	case BlockTypeNote:
		if strings.TrimSpace(b.Title) != "" {
			return b.Title
		}
		return "Note"
	}
	return b.Title
}

// LocationQuery returns the free-text string used for a map lookup.
// Notes have no location.
func (b *Block) LocationQuery() string {
	switch b.Type {
	case BlockTypeFlight:
		if b.ArrivalAirport != "" {
			return b.ArrivalAirport + " airport"
		}
		return ""
	case BlockTypeHotel, BlockTypeActivity:
		if b.Location != "" {
			return b.Location
		}
		return b.Name
	}
	return ""
}

// Clone returns a copy of the block that shares no slices with the receiver
func (b Block) Clone() Block {
	if b.Segments != nil {
		segments := make([]FlightSegment, len(b.Segments))
		copy(segments, b.Segments)
		b.Segments = segments
	}
	return b
}
