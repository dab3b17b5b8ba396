package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/toastui/internal/model"
)

// JSONFormatter formats snapshots as JSON. Without Indent every snapshot
// is a single line, so a stream of snapshots is valid JSON Lines.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes notifications as a JSON array.
func (f *JSONFormatter) Format(w io.Writer, notifications []model.Notification) error {
	if notifications == nil {
		notifications = []model.Notification{}
	}
	return f.encoder(w).Encode(notifications)
}

// FormatSingle writes a single notification as JSON.
func (f *JSONFormatter) FormatSingle(w io.Writer, n *model.Notification) error {
	return f.encoder(w).Encode(n)
}

func (f *JSONFormatter) encoder(w io.Writer) *json.Encoder {
	encoder := json.NewEncoder(w)
	if f.opts.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder
}
