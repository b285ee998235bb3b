package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errW, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	// Events are streamed, one per line
	if _, ok := data.(Event); ok {
		line, _ := json.Marshal(data)
		_, _ = fmt.Fprintln(o.w, string(line))
		return
	}
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case CreateResult:
		o.printCreateResult(v)
	case DraftResult:
		o.printDraftResult(v)
	case Event:
		o.printEvent(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// CreateResult response type (matches API)
type CreateResult struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// DraftResult response type
type DraftResult struct {
	ID         string          `json:"id"`
	Captains   []CaptainResult `json:"captains"`
	Unselected []string        `json:"unselected"`
	Reason     string          `json:"reason"`
	CreatedAt  time.Time       `json:"created_at"`
	ClosedAt   time.Time       `json:"closed_at"`
}

// CaptainResult response type
type CaptainResult struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Players []string `json:"players"`
}

// HealthResult response type
type HealthResult struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// Event is one frame pushed by the server over the live connection
type Event struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (o *Output) printCreateResult(r CreateResult) {
	_, _ = fmt.Fprintf(o.w, "Session: %s\n", r.ID)
	_, _ = fmt.Fprintf(o.w, "Host secret: %s\n", r.Secret)
}

func (o *Output) printDraftResult(r DraftResult) {
	_, _ = fmt.Fprintf(o.w, "Session: %s\n", r.ID)
	_, _ = fmt.Fprintf(o.w, "Ended: %s (%s)\n", r.ClosedAt.Format(time.RFC3339), r.Reason)
	for _, c := range r.Captains {
		_, _ = fmt.Fprintf(o.w, "  %s (%s): %s\n", c.Name, c.ID, joinOrDash(c.Players))
	}
	_, _ = fmt.Fprintf(o.w, "Unselected: %s\n", joinOrDash(r.Unselected))
}

func (o *Output) printEvent(e Event) {
	timestamp := e.Time.Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	displayData := string(e.Data)
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	_, _ = fmt.Fprintf(o.w, "[%s] %s: %s\n", timestamp, e.Event, displayData)
}

func (o *Output) printHealthResult(h HealthResult) {
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	_, _ = fmt.Fprintf(o.w, "Sessions: %d\n", h.Sessions)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
