// Package tui provides the BubbleTea-based toast renderer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/toastui/internal/config"
	"github.com/jmylchreest/toastui/internal/model"
	"github.com/jmylchreest/toastui/internal/theme"
	"github.com/jmylchreest/toastui/internal/toast"
)

// ageRefresh is how often the rendered ages are recomputed.
const ageRefresh = time.Second

var demoMessages = map[model.Kind]string{
	model.KindSuccess: "Changes saved",
	model.KindError:   "Upload failed",
	model.KindWarning: "Disk almost full",
	model.KindInfo:    "Sync started",
}

// Model is the main TUI model.
type Model struct {
	cfg        *config.Config
	dispatcher *toast.Dispatcher
	logger     *slog.Logger
	theme      *theme.Theme

	help help.Model
	keys KeyMap

	// State
	toasts   []model.Notification
	selected string
	showHelp bool
	width    int
	height   int
	ready    bool
	seq      int

	// Status message
	statusMsg string
	statusErr bool

	refreshCh <-chan []model.Notification
	now       func() time.Time
}

// New creates a model rendering d. refreshCh delivers dispatcher changes;
// it may be nil when the caller drives refreshes itself.
func New(cfg *config.Config, d *toast.Dispatcher, refreshCh <-chan []model.Notification) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	m := Model{
		cfg:        cfg,
		dispatcher: d,
		logger:     slog.Default(),
		theme:      theme.Default(),
		help:       help.New(),
		keys:       DefaultKeyMap(),
		refreshCh:  refreshCh,
		now:        time.Now,
	}
	m.setToasts(d.List())
	return m
}

// subscribe forwards dispatcher changes into a channel that only keeps
// the newest list. Deliveries are serialized, so the drain-then-send
// never blocks.
func subscribe(d *toast.Dispatcher) (<-chan []model.Notification, func()) {
	ch := make(chan []model.Notification, 1)
	unsubscribe := d.Subscribe(func(list []model.Notification) {
		select {
		case <-ch:
		default:
		}
		ch <- list
	})
	return ch, unsubscribe
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.watchForChanges,
		tickAges(),
	)
}

// watchForChanges waits for the next dispatcher change.
func (m Model) watchForChanges() tea.Msg {
	if m.refreshCh == nil {
		return nil
	}
	list, ok := <-m.refreshCh
	if !ok {
		return nil
	}
	return refreshMsg{list: list}
}

type refreshMsg struct {
	list []model.Notification
}

type tickMsg time.Time

func tickAges() tea.Cmd {
	return tea.Tick(ageRefresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case refreshMsg:
		m.setToasts(msg.list)
		return m, m.watchForChanges

	case tickMsg:
		return m, tickAges()

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied to clipboard", false)
	}

	return m, nil
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil
	}

	if m.showHelp {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)

	case key.Matches(msg, m.keys.AddSuccess):
		m.addDemo(model.KindSuccess, false)
	case key.Matches(msg, m.keys.AddError):
		m.addDemo(model.KindError, false)
	case key.Matches(msg, m.keys.AddWarning):
		m.addDemo(model.KindWarning, false)
	case key.Matches(msg, m.keys.AddInfo):
		m.addDemo(model.KindInfo, false)
	case key.Matches(msg, m.keys.AddAction):
		m.addDemo(model.KindError, true)

	case key.Matches(msg, m.keys.Invoke):
		n, ok := m.current()
		if !ok {
			return m, nil
		}
		if !m.dispatcher.Invoke(n.ID) {
			return m, status("No action to invoke", true)
		}
		m.setToasts(m.dispatcher.List())
		return m, status("Invoked: "+n.Action.Label, false)

	case key.Matches(msg, m.keys.Close):
		if n, ok := m.current(); ok {
			m.dispatcher.Close(n.ID)
		}
	case key.Matches(msg, m.keys.Remove):
		if n, ok := m.current(); ok {
			m.dispatcher.Remove(n.ID)
		}
	case key.Matches(msg, m.keys.CloseAll):
		m.dispatcher.CloseAll()

	case key.Matches(msg, m.keys.Copy):
		if n, ok := m.current(); ok {
			return m, m.copyToClipboard(n.Message)
		}
		return m, nil

	default:
		return m, nil
	}

	m.setToasts(m.dispatcher.List())
	return m, nil
}

// addDemo adds a toast from the keyboard and selects it. With an action,
// invoking it posts a follow-up success toast.
func (m *Model) addDemo(kind model.Kind, withAction bool) {
	m.seq++
	c := model.Content{
		Kind:    kind,
		Message: fmt.Sprintf("%s #%d", demoMessages[kind], m.seq),
	}
	if withAction {
		d := m.dispatcher
		seq := m.seq
		c.Action = &model.Action{
			Label: "Retry",
			OnClick: func() {
				d.Add(model.Content{
					Kind:    model.KindSuccess,
					Message: fmt.Sprintf("Retried #%d", seq),
				})
			},
		}
	}

	id := m.dispatcher.Add(c)
	m.setToasts(m.dispatcher.List())
	if toast.IndexOf(m.toasts, id) >= 0 {
		m.selected = id
	}
}

// setToasts replaces the rendered list, keeping the selection on the same
// id. If the selected toast is gone, the selection moves to its neighbour.
func (m *Model) setToasts(list []model.Notification) {
	prev := toast.IndexOf(m.toasts, m.selected)
	m.toasts = list

	if toast.IndexOf(list, m.selected) >= 0 {
		return
	}
	switch {
	case len(list) == 0:
		m.selected = ""
	case prev < 0:
		m.selected = list[len(list)-1].ID
	default:
		m.selected = list[min(prev, len(list)-1)].ID
	}
}

func (m *Model) moveSelection(delta int) {
	if len(m.toasts) == 0 {
		return
	}
	idx := toast.IndexOf(m.toasts, m.selected)
	idx = max(0, min(idx+delta, len(m.toasts)-1))
	m.selected = m.toasts[idx].ID
}

// current returns the selected toast.
func (m Model) current() (model.Notification, bool) {
	n := toast.LookupByID(m.toasts, m.selected)
	if n == nil {
		return model.Notification{}, false
	}
	return *n, true
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		err := copyText(context.Background(), text, cfg)
		return copyResultMsg{err: err}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	footer := m.viewFooter()
	bodyHeight := max(m.height-lipgloss.Height(footer), 0)

	if m.showHelp {
		return lipgloss.Place(m.width, bodyHeight, lipgloss.Left, lipgloss.Top, m.viewHelp()) +
			"\n" + footer
	}

	h, v := placement(m.cfg.Display.Position)
	return lipgloss.Place(m.width, bodyHeight, h, v, m.viewStack(h)) + "\n" + footer
}

// viewStack renders the toasts in list order, oldest first.
func (m Model) viewStack(align lipgloss.Position) string {
	if len(m.toasts) == 0 {
		return m.muted().Render("(no toasts)")
	}

	cards := make([]string, 0, len(m.toasts))
	for i := range m.toasts {
		cards = append(cards, m.renderToast(&m.toasts[i], m.toasts[i].ID == m.selected))
	}
	return lipgloss.JoinVertical(align, cards...)
}

func (m Model) renderToast(n *model.Notification, selected bool) string {
	color := lipgloss.Color(m.theme.Kinds.For(n.Kind))

	border := lipgloss.RoundedBorder()
	if selected {
		border = lipgloss.ThickBorder()
	}
	card := lipgloss.NewStyle().
		Border(border).
		BorderForeground(color).
		Padding(0, 1).
		Width(max(m.cfg.Display.Width-2, 1))

	title := lipgloss.NewStyle().Bold(true).Foreground(color).
		Render(m.theme.Icons.For(n.Kind) + " " + string(n.Kind))
	if m.cfg.Behavior.ShowCount && n.Count > 1 {
		title += fmt.Sprintf(" (x%d)", n.Count)
	}
	title += "  " + m.muted().Render(m.age(n.CreatedAt))

	body := title + "\n" + n.Message
	if n.HasAction() {
		body += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Key)).Render("[enter]") +
			" " + n.Action.Label
	}

	if n.IsExiting() {
		card = card.Faint(true).BorderForeground(lipgloss.Color(m.theme.Muted))
	}
	return card.Render(body)
}

func (m Model) muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Muted))
}

func (m Model) age(t time.Time) string {
	now := m.now()
	if now.Sub(t) < time.Second {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func (m Model) viewFooter() string {
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Text))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color(m.theme.Kinds.Error))
		}
		return statusStyle.Render(m.statusMsg)
	}
	if !m.cfg.Display.ShowHelp {
		return ""
	}
	return m.buildKeybindBar(m.width)
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(m.theme.Accent)).
		MarginBottom(1)

	return titleStyle.Render("Keyboard Shortcuts") + "\n" +
		m.help.View(m.keys) + "\n\n" +
		m.muted().Render("Press ? to return")
}

// placement maps a configured corner to lipgloss positions.
func placement(position string) (lipgloss.Position, lipgloss.Position) {
	switch config.Position(position) {
	case config.PositionTopLeft:
		return lipgloss.Left, lipgloss.Top
	case config.PositionTopRight:
		return lipgloss.Right, lipgloss.Top
	case config.PositionTopCenter:
		return lipgloss.Center, lipgloss.Top
	case config.PositionBottomLeft:
		return lipgloss.Left, lipgloss.Bottom
	case config.PositionBottomCenter:
		return lipgloss.Center, lipgloss.Bottom
	default:
		return lipgloss.Right, lipgloss.Bottom
	}
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
func (m Model) buildKeybindBar(width int) string {
	style := m.muted()
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Key))

	binds := []keybind{
		{"q", "quit", 1},
		{"?", "help", 2},
		{"s/e/w/i", "add", 3},
		{"x", "close", 4},
		{"enter", "invoke", 5},
		{"a", "with action", 6},
		{"c", "close all", 7},
		{"y", "copy", 8},
		{"D", "remove", 9},
	}

	const separator = "  "
	result := ""
	plainLen := 0
	for _, b := range binds {
		plainItem := b.key + " " + b.desc
		testLen := len(plainItem)
		if result != "" {
			testLen += plainLen + len(separator)
		}
		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += keyStyle.Render(b.key) + " " + b.desc
		plainLen = testLen
	}

	return style.Render(result)
}

// RunOptions configures the TUI.
type RunOptions struct {
	Config *config.Config
	// Dispatcher defaults to the one attached to the Run context.
	Dispatcher *toast.Dispatcher
	Logger     *slog.Logger

	// Theme overrides the palette named by Config.Display.Theme.
	Theme *theme.Theme
}

// Run starts the TUI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts RunOptions) error {
	if opts.Dispatcher == nil {
		d, err := toast.FromContext(ctx)
		if err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		opts.Dispatcher = d
	}

	ch, unsubscribe := subscribe(opts.Dispatcher)
	defer unsubscribe()

	m := New(opts.Config, opts.Dispatcher, ch)
	if opts.Logger != nil {
		m.logger = opts.Logger
	}
	m.theme = opts.Theme
	if m.theme == nil {
		m.theme = theme.NewLoader("", m.logger).Load(m.cfg.Display.Theme)
	}
	m.logger.Debug("starting tui", "toasts", len(m.toasts), "position", m.cfg.Display.Position, "theme", m.theme.Name)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
