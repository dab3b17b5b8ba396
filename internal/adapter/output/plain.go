package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/toastui/internal/model"
)

// PlainFormatter formats notifications as plain text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes one line per notification followed by a blank line that
// separates snapshots.
func (f *PlainFormatter) Format(w io.Writer, notifications []model.Notification) error {
	now := f.opts.now()

	var sb strings.Builder
	if len(notifications) == 0 {
		sb.WriteString("(no toasts)\n")
	}
	for i, n := range notifications {
		if err := f.formatNotification(&sb, i+1, &n, now); err != nil {
			return err
		}
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// formatNotification formats a single notification.
func (f *PlainFormatter) formatNotification(sb *strings.Builder, index int, n *model.Notification, now time.Time) error {
	if f.template != nil {
		data := templateData{
			Index:        index,
			Notification: n,
			RelativeTime: relativeTime(n.CreatedAt, now),
		}
		if err := f.template.Execute(sb, data); err != nil {
			return fmt.Errorf("failed to execute template: %w", err)
		}
		sb.WriteString("\n")
		return nil
	}

	if f.opts.ShowIndex {
		fmt.Fprintf(sb, "[%d] ", index)
	}

	fmt.Fprintf(sb, "%-7s ", n.Kind)
	sb.WriteString(n.MessageTruncated(f.opts.MessageMaxLen))

	if f.opts.ShowCount && n.Count > 1 {
		fmt.Fprintf(sb, " (x%d)", n.Count)
	}
	if n.Action != nil {
		fmt.Fprintf(sb, " [%s]", n.Action.Label)
	}
	if n.State != model.StateActive {
		fmt.Fprintf(sb, " <%s>", n.State)
	}
	if f.opts.ShowTime {
		fmt.Fprintf(sb, " (%s)", relativeTime(n.CreatedAt, now))
	}

	sb.WriteString("\n")
	return nil
}

// templateData provides data for custom templates.
type templateData struct {
	Index        int
	Notification *model.Notification
	RelativeTime string
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": model.TruncateMessage,
		"kindIcon": kindIcon,
	}
}

// kindIcon returns a one-character marker for a kind.
func kindIcon(kind model.Kind) string {
	switch kind {
	case model.KindSuccess:
		return "+"
	case model.KindError:
		return "!"
	case model.KindWarning:
		return "?"
	default:
		return "-"
	}
}

// relativeTime returns a human-readable age such as "3 seconds ago".
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	if now.Sub(t) < time.Second {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
