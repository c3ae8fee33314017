package models

import (
	"cloud.google.com/go/civil"
)

// Itinerary represents a multi-day trip plan
type Itinerary struct {
	ID          *string     `json:"id"` // nil until the first successful remote save
	Destination string      `json:"destination"`
	StartDate   *civil.Date `json:"startDate"`
	EndDate     *civil.Date `json:"endDate"`
	Travelers   int         `json:"travelers"`
	Days        []Day       `json:"days"`
}

// Day is one calendar slot of an itinerary
type Day struct {
	Date   *civil.Date `json:"date"` // nil for the placeholder day
	Title  string      `json:"title"`
	Blocks []Block     `json:"blocks"`
}

// DefaultTravelers is used when a snapshot carries no traveler count
const DefaultTravelers = 1

// NewItinerary returns an undated itinerary with a single placeholder day
func NewItinerary() *Itinerary {
	return &Itinerary{
		Travelers: DefaultTravelers,
		Days: []Day{
			{Title: "Day 1 (Arrival)", Blocks: []Block{}},
		},
	}
}

// IsPersisted reports whether the itinerary has a remote id
func (it *Itinerary) IsPersisted() bool {
	return it.ID != nil && *it.ID != ""
}

// HasDay reports whether index addresses an existing day
func (it *Itinerary) HasDay(index int) bool {
	return index >= 0 && index < len(it.Days)
}

// BlockCount returns the number of blocks across all days
func (it *Itinerary) BlockCount() int {
	total := 0
	for _, d := range it.Days {
		total += len(d.Blocks)
	}
	return total
}

// Clone returns a deep copy that shares no memory with the receiver
func (it *Itinerary) Clone() Itinerary {
	out := Itinerary{
		Destination: it.Destination,
		Travelers:   it.Travelers,
		ID:          cloneString(it.ID),
		StartDate:   cloneDate(it.StartDate),
		EndDate:     cloneDate(it.EndDate),
	}
	if it.Days != nil {
		out.Days = make([]Day, len(it.Days))
		for i, d := range it.Days {
			out.Days[i] = d.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the day and its blocks
func (d Day) Clone() Day {
	out := Day{
		Date:  cloneDate(d.Date),
		Title: d.Title,
	}
	if d.Blocks != nil {
		out.Blocks = make([]Block, len(d.Blocks))
		for i, b := range d.Blocks {
			out.Blocks[i] = b.Clone()
		}
	}
	return out
}

// Sanitize fixes values a decoded snapshot may leave invalid
func (it *Itinerary) Sanitize() {
	if it.Travelers < 1 {
		it.Travelers = DefaultTravelers
	}
	if it.StartDate != nil && it.EndDate != nil && it.EndDate.Before(*it.StartDate) {
		end := *it.StartDate
		it.EndDate = &end
	}
	for i := range it.Days {
		if it.Days[i].Blocks == nil {
			it.Days[i].Blocks = []Block{}
		}
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneDate(d *civil.Date) *civil.Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
