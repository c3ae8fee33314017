// Package render projects an itinerary into a view tree for the chat page.
package render

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/cx-tal-miterani/avi-itinerary/shared/models"
	"github.com/samber/lo"
)

// ActionKind identifies an interaction attached to a card
type ActionKind string

const (
	ActionToggle ActionKind = "toggle"
	ActionLocate ActionKind = "locate"
	ActionRemove ActionKind = "remove"
)

const (
	EmptyDayPlaceholder = "Nothing planned for this day yet. Ask AVI for flights, hotels or activities."
	RemoveConfirmPrompt = "Remove %q from %s?"
)

// UIState is the per-session presentation state that is never persisted
type UIState struct {
	ActiveDay int             `json:"activeDay"`
	Expanded  map[string]bool `json:"expanded,omitempty"`
}

// View is the full projection of an itinerary
type View struct {
	ID          string  `json:"id,omitempty"`
	Destination string  `json:"destination"`
	StartDate   string  `json:"startDate,omitempty"`
	EndDate     string  `json:"endDate,omitempty"`
	Travelers   int     `json:"travelers"`
	ActiveDay   int     `json:"activeDay"`
	Tabs        []Tab   `json:"tabs"`
	Day         DayView `json:"day"`
}

// Tab is the selector entry of one day
type Tab struct {
	Index      int    `json:"index"`
	Title      string `json:"title"`
	Date       string `json:"date,omitempty"`
	Active     bool   `json:"active"`
	BlockCount int    `json:"blockCount"`
}

// DayView is the content of the active day
type DayView struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Date        string `json:"date,omitempty"`
	Empty       bool   `json:"empty"`
	Placeholder string `json:"placeholder,omitempty"`
	Cards       []Card `json:"cards"`
}

// Card renders a single block
type Card struct {
	BlockID  string           `json:"blockId"`
	Type     models.BlockType `json:"type"`
	Title    string           `json:"title"`
	Summary  string           `json:"summary,omitempty"`
	Expanded bool             `json:"expanded"`
	Fields   []Field          `json:"fields"`
	Actions  []Action         `json:"actions"`
}

// Field is one labelled value of a card
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Action is an interaction the client may trigger on a card
type Action struct {
	Kind     ActionKind `json:"kind"`
	Label    string     `json:"label"`
	Query    string     `json:"query,omitempty"`   // locate
	Confirm  string     `json:"confirm,omitempty"` // remove
	DayIndex int        `json:"dayIndex"`
}

// Render is a pure projection of it and ui. An out of range active day
// renders day 0.
func Render(it models.Itinerary, ui UIState) View {
	active := ui.ActiveDay
	if !it.HasDay(active) {
		active = 0
	}

	view := View{
		Destination: it.Destination,
		StartDate:   formatDate(it.StartDate),
		EndDate:     formatDate(it.EndDate),
		Travelers:   it.Travelers,
		ActiveDay:   active,
		Tabs: lo.Map(it.Days, func(d models.Day, i int) Tab {
			return Tab{
				Index:      i,
				Title:      d.Title,
				Date:       formatDate(d.Date),
				Active:     i == active,
				BlockCount: len(d.Blocks),
			}
		}),
	}
	if it.IsPersisted() {
		view.ID = *it.ID
	}
	if len(it.Days) == 0 {
		view.Day = DayView{Empty: true, Placeholder: EmptyDayPlaceholder, Cards: []Card{}}
		return view
	}

	day := it.Days[active]
	view.Day = DayView{
		Index: active,
		Title: day.Title,
		Date:  formatDate(day.Date),
		Cards: lo.Map(day.Blocks, func(b models.Block, _ int) Card {
			return RenderCard(b, active, day.Title, ui.Expanded[b.ID])
		}),
	}
	if len(day.Blocks) == 0 {
		view.Day.Empty = true
		view.Day.Placeholder = EmptyDayPlaceholder
	}
	return view
}

// RenderCard projects one block of the day at dayIndex
func RenderCard(b models.Block, dayIndex int, dayTitle string, expanded bool) Card {
	title := b.Title
	if title == "" {
		title = b.DeriveTitle()
	}

	actions := []Action{{Kind: ActionToggle, Label: toggleLabel(expanded), DayIndex: dayIndex}}
	if q := b.LocationQuery(); q != "" {
		actions = append(actions, Action{Kind: ActionLocate, Label: "Show on map", Query: q, DayIndex: dayIndex})
	}
	actions = append(actions, Action{
		Kind:     ActionRemove,
		Label:    "Remove",
		Confirm:  fmt.Sprintf(RemoveConfirmPrompt, title, dayTitle),
		DayIndex: dayIndex,
	})

	return Card{
		BlockID:  b.ID,
		Type:     b.Type,
		Title:    title,
		Summary:  summary(b),
		Expanded: expanded,
		Fields:   fields(b),
		Actions:  actions,
	}
}

func toggleLabel(expanded bool) string {
	if expanded {
		return "Hide details"
	}
	return "Show details"
}

func summary(b models.Block) string {
	switch b.Type {
	case models.BlockTypeFlight:
		return route(b.DepartureAirport, b.ArrivalAirport)
	case models.BlockTypeHotel:
		return b.Location
	case models.BlockTypeActivity:
		return strings.TrimSpace(strings.Join(lo.Compact([]string{b.Datetime, b.Location}), " · "))
	case models.BlockTypeNote:
		line, _, _ := strings.Cut(b.Content, "\n")
		return truncate(line, 80)
	}
	return ""
}

func fields(b models.Block) []Field {
	var all []Field
	switch b.Type {
	case models.BlockTypeFlight:
		all = []Field{
			{"Airline", b.Airline},
			{"Flight", b.FlightNumber},
			{"Route", route(b.DepartureAirport, b.ArrivalAirport)},
			{"Departure", b.DepartureTime},
			{"Arrival", b.ArrivalTime},
			{"Stops", stops(len(b.Segments))},
			{"Price", money(b.Price, b.Currency)},
		}
	case models.BlockTypeHotel:
		all = []Field{
			{"Location", b.Location},
			{"Stars", stars(b.Stars)},
			{"Check-in", b.CheckIn},
			{"Check-out", b.CheckOut},
			{"Per night", money(b.PricePerNight, b.Currency)},
		}
	case models.BlockTypeActivity:
		all = []Field{
			{"Location", b.Location},
			{"When", b.Datetime},
			{"Price", money(b.Price, b.Currency)},
			{"Notes", b.Notes},
		}
	case models.BlockTypeNote:
		all = []Field{{"Note", b.Content}}
	}
	return lo.Filter(all, func(f Field, _ int) bool { return f.Value != "" })
}

func route(from, to string) string {
	if from == "" && to == "" {
		return ""
	}
	return from + " → " + to
}

func stops(segments int) string {
	switch {
	case segments <= 1:
		return ""
	case segments == 2:
		return "1 stop"
	default:
		return fmt.Sprintf("%d stops", segments-1)
	}
}

func stars(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", models.MaxStars-n)
}

func money(amount float64, currency string) string {
	if amount <= 0 {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%.2f %s", amount, currency))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func formatDate(d *civil.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
