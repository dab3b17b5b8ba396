package tui

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jmylchreest/toastui/internal/config"
)

// copyText pipes text into the system clipboard command.
func copyText(ctx context.Context, text string, cfg *config.Config) error {
	cmd := detectClipboardCommand(cfg)
	if cmd == "" {
		return fmt.Errorf("no clipboard command available")
	}

	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return fmt.Errorf("invalid clipboard command %q", cmd)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, parts[0], parts[1:]...)
	c.Stdin = strings.NewReader(text)
	if err := c.Run(); err != nil {
		return fmt.Errorf("%s: %w", parts[0], err)
	}
	return nil
}

// detectClipboardCommand returns the configured command, or the first of
// wl-copy, xclip, xsel and pbcopy found on PATH.
func detectClipboardCommand(cfg *config.Config) string {
	if cfg != nil && cfg.Display.Clipboard != "" {
		return cfg.Display.Clipboard
	}

	candidates := []struct {
		bin string
		cmd string
	}{
		{"wl-copy", "wl-copy"},
		{"xclip", "xclip -selection clipboard"},
		{"xsel", "xsel --clipboard --input"},
		{"pbcopy", "pbcopy"},
	}
	for _, c := range candidates {
		if _, err := exec.LookPath(c.bin); err == nil {
			return c.cmd
		}
	}
	return ""
}
