package theme

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/toastui/internal/model"
)

// colorRegex accepts what lipgloss understands: an ANSI index or a hex color.
var colorRegex = regexp.MustCompile(`^(#[0-9a-fA-F]{6}|#[0-9a-fA-F]{3}|[0-9]{1,3})$`)

// ErrInvalidColor is returned for a palette entry lipgloss cannot render.
var ErrInvalidColor = errors.New("invalid color")

// Theme is a named palette.
type Theme struct {
	Name      string `toml:"-"`
	Path      string `toml:"-"` // Empty for bundled themes
	IsDefault bool   `toml:"-"`

	Muted  string `toml:"muted"`  // Ages, exiting cards, hints
	Text   string `toml:"text"`   // Status line
	Accent string `toml:"accent"` // Headings
	Key    string `toml:"key"`    // Key names in hints

	Kinds KindColors `toml:"kinds"`
	Icons KindIcons  `toml:"icons"`
}

// KindColors holds one color per toast kind.
type KindColors struct {
	Success string `toml:"success"`
	Error   string `toml:"error"`
	Warning string `toml:"warning"`
	Info    string `toml:"info"`
}

// For returns the color for kind, falling back to info.
func (k KindColors) For(kind model.Kind) string {
	switch kind {
	case model.KindSuccess:
		return k.Success
	case model.KindError:
		return k.Error
	case model.KindWarning:
		return k.Warning
	default:
		return k.Info
	}
}

// KindIcons holds one icon per toast kind.
type KindIcons struct {
	Success string `toml:"success"`
	Error   string `toml:"error"`
	Warning string `toml:"warning"`
	Info    string `toml:"info"`
}

// For returns the icon for kind, falling back to info.
func (k KindIcons) For(kind model.Kind) string {
	switch kind {
	case model.KindSuccess:
		return k.Success
	case model.KindError:
		return k.Error
	case model.KindWarning:
		return k.Warning
	default:
		return k.Info
	}
}

// Parse decodes a palette. Keys missing from data keep the value from
// base, so user themes only need to name what they change. base may be nil.
func Parse(name string, data []byte, base *Theme) (*Theme, error) {
	t := &Theme{}
	if base != nil {
		*t = *base
	}
	t.Name = name
	t.Path = ""
	t.IsDefault = false

	if err := toml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse theme %s: %w", name, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("theme %s: %w", name, err)
	}
	return t, nil
}

// Validate checks every color.
func (t *Theme) Validate() error {
	colors := []struct {
		key, value string
	}{
		{"muted", t.Muted},
		{"text", t.Text},
		{"accent", t.Accent},
		{"key", t.Key},
		{"kinds.success", t.Kinds.Success},
		{"kinds.error", t.Kinds.Error},
		{"kinds.warning", t.Kinds.Warning},
		{"kinds.info", t.Kinds.Info},
	}
	for _, c := range colors {
		if !colorRegex.MatchString(c.value) {
			return fmt.Errorf("%w for %s: %q", ErrInvalidColor, c.key, c.value)
		}
	}
	return nil
}
