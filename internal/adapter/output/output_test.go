package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/toastui/internal/model"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testNotifications() []model.Notification {
	return []model.Notification{
		{
			ID:        "01JABC",
			Kind:      model.KindSuccess,
			Message:   "Saved",
			State:     model.StateActive,
			Count:     1,
			CreatedAt: testNow.Add(-5 * time.Minute),
		},
		{
			ID:        "01JDEF",
			Kind:      model.KindError,
			Message:   "Disk\nfull",
			Action:    &model.Action{Label: "Retry", OnClick: func() {}},
			State:     model.StateExiting,
			Count:     3,
			CreatedAt: testNow.Add(-2 * time.Second),
			ExitingAt: testNow,
		},
	}
}

func testOptions() FormatterOptions {
	opts := DefaultFormatterOptions()
	opts.Now = func() time.Time { return testNow }
	return opts
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("dmenu")
	assert.Error(t, err)
}

func TestNewFormatter(t *testing.T) {
	assert.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON, testOptions()))
	assert.IsType(t, &YAMLFormatter{}, NewFormatter(FormatYAML, testOptions()))
	assert.IsType(t, &IDsFormatter{}, NewFormatter(FormatIDs, testOptions()))
	assert.IsType(t, &PlainFormatter{}, NewFormatter(FormatPlain, testOptions()))
	assert.IsType(t, &PlainFormatter{}, NewFormatter("other", testOptions()))
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(testOptions()).Format(&buf, testNotifications()))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\n"), "one snapshot per line")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "01JABC", decoded[0]["id"])
	assert.Equal(t, "success", decoded[0]["kind"])
	assert.Equal(t, "active", decoded[0]["state"])
	assert.NotContains(t, decoded[0], "action")
	assert.NotContains(t, decoded[0], "exiting_at")

	assert.Equal(t, "exiting", decoded[1]["state"])
	assert.Equal(t, map[string]any{"label": "Retry"}, decoded[1]["action"])
	assert.Equal(t, float64(3), decoded[1]["count"])
}

func TestJSONFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(testOptions()).Format(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestJSONFormatter_FormatSingle(t *testing.T) {
	opts := testOptions()
	opts.Indent = true

	var buf bytes.Buffer
	n := testNotifications()[0]
	require.NoError(t, NewJSONFormatter(opts).FormatSingle(&buf, &n))
	assert.Contains(t, buf.String(), "\n  \"id\": \"01JABC\"")
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	f := NewYAMLFormatter(testOptions())
	require.NoError(t, f.Format(&buf, testNotifications()))
	require.NoError(t, f.Format(&buf, nil))

	dec := yaml.NewDecoder(&buf)

	var first []map[string]any
	require.NoError(t, dec.Decode(&first))
	require.Len(t, first, 2)
	assert.Equal(t, "01JABC", first[0]["id"])
	assert.Equal(t, "active", first[0]["state"])
	assert.NotContains(t, first[0], "exiting_at")
	assert.Equal(t, map[string]any{"label": "Retry"}, first[1]["action"])

	var second []map[string]any
	require.NoError(t, dec.Decode(&second))
	assert.Empty(t, second)
}

func TestPlainFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(testOptions()).Format(&buf, testNotifications()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	assert.Equal(t, "[1] success Saved (5 minutes ago)", lines[0])
	assert.Equal(t, "[2] error   Disk full (x3) [Retry] <exiting> (2 seconds ago)", lines[1])
	assert.True(t, strings.HasSuffix(buf.String(), "\n\n"))
}

func TestPlainFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(testOptions()).Format(&buf, nil))
	assert.Equal(t, "(no toasts)\n\n", buf.String())
}

func TestPlainFormatter_Options(t *testing.T) {
	opts := testOptions()
	opts.ShowIndex = false
	opts.ShowTime = false
	opts.ShowCount = false
	opts.MessageMaxLen = 6

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testNotifications()[1:]))
	assert.Equal(t, "error   Dis... [Retry] <exiting>\n\n", buf.String())
}

func TestPlainFormatter_TruncatesMultiByteMessages(t *testing.T) {
	n := model.NewNotification("01JXYZ", model.Content{
		Kind:    model.KindInfo,
		Message: strings.Repeat("a", 116) + "żółw ąę",
	}, testNow)

	opts := DefaultFormatterOptions()
	opts.Now = func() time.Time { return testNow }

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, []model.Notification{n}))

	assert.True(t, utf8.Valid(buf.Bytes()))
	assert.Contains(t, buf.String(), strings.Repeat("a", 116)+"ż... (now)")
}

func TestPlainFormatter_Template(t *testing.T) {
	opts := testOptions()
	opts.Template = `{{.Index}} {{kindIcon .Notification.Kind}} {{truncate .Notification.Message 20}} {{.RelativeTime}}`

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testNotifications()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1 + Saved 5 minutes ago", lines[0])
	assert.Equal(t, "2 ! Disk full 2 seconds ago", lines[1])
}

func TestIDsFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIDsFormatter().Format(&buf, testNotifications()))
	assert.Equal(t, "01JABC\n01JDEF\n", buf.String())
}

func TestRelativeTime(t *testing.T) {
	assert.Equal(t, "unknown", relativeTime(time.Time{}, testNow))
	assert.Equal(t, "now", relativeTime(testNow.Add(-500*time.Millisecond), testNow))
	assert.Equal(t, "1 hour ago", relativeTime(testNow.Add(-time.Hour), testNow))
}
