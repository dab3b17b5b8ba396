package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// maxLineSize caps a single input line.
const maxLineSize = 1024 * 1024

// StdinAdapter reads line-oriented commands. Each line is either a JSON
// command object or plain text, which adds an info toast.
type StdinAdapter struct {
	name   string
	reader io.Reader
	closer io.Closer
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{name: "stdin", reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{name: "stdin", reader: r}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return a.name
}

// Run reads commands line by line. Blank lines and lines starting with "#"
// are skipped. A malformed line stops the run with an AdapterError; an
// error from handle is returned as-is.
func (a *StdinAdapter) Run(ctx context.Context, handle func(Command) error) error {
	if a.closer != nil {
		defer a.closer.Close()
	}

	scanner := bufio.NewScanner(a.reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		cmd, err := ParseLine([]byte(text))
		if err != nil {
			return &AdapterError{
				Source:  a.name,
				Line:    line,
				Message: "invalid command",
				Err:     err,
			}
		}
		if err := handle(cmd); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return &AdapterError{
			Source:  a.name,
			Message: "failed to read input",
			Err:     err,
		}
	}
	return nil
}

// ParseLine parses one non-empty input line.
func ParseLine(data []byte) (Command, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		cmd := Command{Op: OpAdd, Message: sanitizeString(string(data))}
		if err := cmd.Validate(); err != nil {
			return Command{}, err
		}
		return cmd, nil
	}

	var cmd Command
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return Command{}, err
	}
	cmd.Message = sanitizeString(cmd.Message)
	cmd.Action = sanitizeString(cmd.Action)

	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// sanitizeString strips control characters other than newline and tab.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
