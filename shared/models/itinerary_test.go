package models

import (
	"encoding/json"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItinerary(t *testing.T) {
	it := NewItinerary()

	assert.Nil(t, it.ID)
	assert.False(t, it.IsPersisted())
	assert.Equal(t, 1, it.Travelers)
	require.Len(t, it.Days, 1)
	assert.Nil(t, it.Days[0].Date)
	assert.NotNil(t, it.Days[0].Blocks)
}

func TestItinerary_CloneIsDeep(t *testing.T) {
	id := "abc"
	start := civil.Date{Year: 2024, Month: 3, Day: 10}
	it := &Itinerary{
		ID:        &id,
		StartDate: &start,
		Travelers: 2,
		Days: []Day{{
			Date: &start,
			Blocks: []Block{{
				ID:       "flight-1",
				Type:     BlockTypeFlight,
				Segments: []FlightSegment{{Airline: "LA"}},
			}},
		}},
	}

	cp := it.Clone()
	*cp.ID = "changed"
	cp.StartDate.Day = 11
	cp.Days[0].Blocks[0].Segments[0].Airline = "AA"
	cp.Days[0].Blocks = append(cp.Days[0].Blocks, Block{ID: "note-1"})

	assert.Equal(t, "abc", *it.ID)
	assert.Equal(t, 10, it.StartDate.Day)
	assert.Equal(t, "LA", it.Days[0].Blocks[0].Segments[0].Airline)
	assert.Len(t, it.Days[0].Blocks, 1)
}

func TestItinerary_Sanitize(t *testing.T) {
	start := civil.Date{Year: 2024, Month: 3, Day: 12}
	end := civil.Date{Year: 2024, Month: 3, Day: 10}
	it := &Itinerary{StartDate: &start, EndDate: &end, Days: []Day{{}}}

	it.Sanitize()

	assert.Equal(t, 1, it.Travelers)
	assert.Equal(t, start, *it.EndDate)
	assert.NotNil(t, it.Days[0].Blocks)
}

func TestItinerary_SnapshotShape(t *testing.T) {
	start := civil.Date{Year: 2024, Month: 3, Day: 10}
	it := &Itinerary{
		Destination: "New York",
		StartDate:   &start,
		Travelers:   1,
		Days: []Day{{
			Date:   &start,
			Title:  "Day 1 (Arrival)",
			Blocks: []Block{{ID: "note-1", Type: BlockTypeNote, Title: "Packing", Content: "passport"}},
		}},
	}

	data, err := json.Marshal(it)
	require.NoError(t, err)
	s := string(data)

	assert.True(t, strings.Contains(s, `"id":null`))
	assert.True(t, strings.Contains(s, `"startDate":"2024-03-10"`))
	assert.True(t, strings.Contains(s, `"endDate":null`))
	assert.True(t, strings.Contains(s, `"type":"note"`))
	assert.True(t, strings.Contains(s, `"content":"passport"`))
	assert.False(t, strings.Contains(s, `"airline"`))

	var decoded Itinerary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, start, *decoded.Days[0].Date)
	assert.Equal(t, "passport", decoded.Days[0].Blocks[0].Content)
}

func TestBlock_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		block     Block
		wantTitle string
		wantStars int
	}{
		{"flight", Block{Type: BlockTypeFlight, Airline: "LA", FlightNumber: "1234"}, "Flight LA 1234", 0},
		{"hotel clamps stars", Block{Type: BlockTypeHotel, Name: "Plaza", Stars: 9}, "Plaza", 5},
		{"hotel negative stars", Block{Type: BlockTypeHotel, Name: "Inn", Stars: -2}, "Inn", 0},
		{"activity", Block{Type: BlockTypeActivity, Name: "MoMA"}, "MoMA", 0},
		{"note keeps title", Block{Type: BlockTypeNote, Title: "Reminders"}, "Reminders", 0},
		{"note default title", Block{Type: BlockTypeNote}, "Note", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.block
			b.Normalize()
			assert.Equal(t, tt.wantTitle, b.Title)
			assert.Equal(t, tt.wantStars, b.Stars)
		})
	}
}

func TestBlock_LocationQuery(t *testing.T) {
	assert.Equal(t, "JFK airport", (&Block{Type: BlockTypeFlight, ArrivalAirport: "JFK"}).LocationQuery())
	assert.Equal(t, "5th Ave", (&Block{Type: BlockTypeHotel, Name: "Plaza", Location: "5th Ave"}).LocationQuery())
	assert.Equal(t, "MoMA", (&Block{Type: BlockTypeActivity, Name: "MoMA"}).LocationQuery())
	assert.Empty(t, (&Block{Type: BlockTypeNote, Content: "x"}).LocationQuery())
}

func TestNewBlockID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewBlockID(BlockTypeNote)
		assert.True(t, strings.HasPrefix(id, "note-"))
		assert.False(t, seen[id])
		seen[id] = true
	}
}
