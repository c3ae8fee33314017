// Package notifier turns itinerary events into assistant messages in the
// chat transcript.
package notifier

import (
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/cx-tal-miterani/avi-itinerary/internal/events"
	"github.com/cx-tal-miterani/avi-itinerary/shared/models"
	"go.uber.org/zap"
)

const RoleAssistant = "assistant"

// ChatMessage is one line of the chat transcript
type ChatMessage struct {
	Role      string      `json:"role"`
	Text      string      `json:"text"`
	Kind      events.Kind `json:"kind"`
	Timestamp time.Time   `json:"timestamp"`
}

// Transcript receives chat messages
type Transcript interface {
	Append(msg ChatMessage)
}

type templateKey struct {
	kind      events.Kind
	blockType models.BlockType
}

var defaultTemplates = map[templateKey]string{
	{events.KindBlockAdded, models.BlockTypeFlight}:   `Flight {{.Block.Airline}} {{.Block.FlightNumber}}{{with .Block.DepartureAirport}} from {{.}}{{end}}{{with .Block.ArrivalAirport}} to {{.}}{{end}} added to {{.DayTitle}}.`,
	{events.KindBlockAdded, models.BlockTypeHotel}:    `Hotel {{.Block.Title}} added to {{.DayTitle}}.`,
	{events.KindBlockAdded, models.BlockTypeActivity}: `Activity {{.Block.Title}} added to {{.DayTitle}}.`,
	{events.KindBlockAdded, models.BlockTypeNote}:     `Note added to {{.DayTitle}}.`,

	{events.KindBlockRemoved, models.BlockTypeFlight}:   `Flight {{.Block.Airline}} {{.Block.FlightNumber}} removed from {{.DayTitle}}.`,
	{events.KindBlockRemoved, models.BlockTypeHotel}:    `Hotel {{.Block.Title}} removed from {{.DayTitle}}.`,
	{events.KindBlockRemoved, models.BlockTypeActivity}: `Activity {{.Block.Title}} removed from {{.DayTitle}}.`,
	{events.KindBlockRemoved, models.BlockTypeNote}:     `Note removed from {{.DayTitle}}.`,

	{events.KindDestinationUpdated, ""}: `Itinerary updated{{with .Destination}} for {{.}}{{end}}: {{.Count}} {{if eq .Count 1}}day{{else}}days{{end}} planned.`,
	{events.KindFlightsMerged, ""}:      `{{.Count}} {{if eq .Count 1}}flight{{else}}flights{{end}} from your search added to {{.DayTitle}}.`,
}

// Notifier writes a transcript line for every event that has a template
type Notifier struct {
	templates map[templateKey]*template.Template
	sinks     []Transcript
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Notifier that writes to sinks
func New(logger *zap.Logger, sinks ...Transcript) *Notifier {
	n := &Notifier{
		templates: make(map[templateKey]*template.Template, len(defaultTemplates)),
		sinks:     sinks,
		logger:    logger.Named("notifier"),
		now:       time.Now,
	}
	for key, text := range defaultTemplates {
		n.templates[key] = template.Must(template.New(string(key.kind) + "/" + string(key.blockType)).Parse(text))
	}
	return n
}

// Attach subscribes the notifier to bus
func (n *Notifier) Attach(bus *events.Bus) (detach func()) {
	return bus.Subscribe(n.Handle)
}

// Handle renders e and appends it to every sink. Events without a template
// are ignored.
func (n *Notifier) Handle(e events.Event) {
	text, ok := n.Message(e)
	if !ok {
		return
	}
	msg := ChatMessage{
		Role:      RoleAssistant,
		Text:      text,
		Kind:      e.Kind,
		Timestamp: n.now(),
	}
	for _, sink := range n.sinks {
		sink.Append(msg)
	}
}

// Message returns the transcript text for e
func (n *Notifier) Message(e events.Event) (string, bool) {
	key := templateKey{kind: e.Kind}
	if e.Block != nil {
		key.blockType = e.Block.Type
	}
	tmpl, ok := n.templates[key]
	if !ok {
		return "", false
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, e); err != nil {
		n.logger.Warn("Failed to render chat message", zap.String("kind", string(e.Kind)), zap.Error(err))
		return "", false
	}
	return strings.Join(strings.Fields(sb.String()), " "), true
}

// MemoryTranscript keeps the most recent messages in memory
type MemoryTranscript struct {
	mu       sync.RWMutex
	messages []ChatMessage
	limit    int
}

// NewMemoryTranscript keeps at most limit messages. A limit <= 0 keeps all.
func NewMemoryTranscript(limit int) *MemoryTranscript {
	return &MemoryTranscript{limit: limit}
}

func (t *MemoryTranscript) Append(msg ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
	if t.limit > 0 && len(t.messages) > t.limit {
		t.messages = append([]ChatMessage(nil), t.messages[len(t.messages)-t.limit:]...)
	}
}

// Messages returns a copy of the transcript, oldest first
func (t *MemoryTranscript) Messages() []ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}
