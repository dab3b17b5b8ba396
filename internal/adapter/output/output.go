// Package output provides output formatters for toast snapshots.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmylchreest/toastui/internal/model"
)

// Formatter writes one snapshot of the toast list.
type Formatter interface {
	// Format writes formatted notifications to the writer.
	Format(w io.Writer, notifications []model.Notification) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatPlain FormatType = "plain"
	FormatIDs   FormatType = "ids"
)

// FormatTypes returns all supported formats.
func FormatTypes() []FormatType {
	return []FormatType{FormatJSON, FormatYAML, FormatPlain, FormatIDs}
}

// ParseFormat parses a format name.
func ParseFormat(s string) (FormatType, error) {
	f := FormatType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range FormatTypes() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q, must be one of: %v", s, FormatTypes())
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template      string           // Custom template for plain format
	ShowIndex     bool             // Show 1-based index prefix
	ShowTime      bool             // Show relative age
	ShowCount     bool             // Show "(x2)" for stacked duplicates
	MessageMaxLen int              // Maximum message length (0 = unlimited)
	Indent        bool             // Pretty-print JSON
	Now           func() time.Time // Clock for relative ages, time.Now if nil
}

// DefaultFormatterOptions returns sensible defaults for plain output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:     true,
		ShowTime:      true,
		ShowCount:     true,
		MessageMaxLen: 120,
	}
}

func (o FormatterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
