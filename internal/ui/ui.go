package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/songbot/internal/messages"
)

// maxEvents caps the event log.
const maxEvents = 200

// ViewState represents the current view in the TUI.
type ViewState int

const (
	EventsView ViewState = iota
	QueueView
)

func (v ViewState) String() string {
	switch v {
	case EventsView:
		return "Events"
	case QueueView:
		return "Queue"
	default:
		return ""
	}
}

// Publisher puts messages on the bus.
type Publisher interface {
	Publish(ctx context.Context, msg messages.Message) error
}

type event struct {
	at   time.Time
	kind messages.Kind
	text string
}

// Model represents the monitor state.
type Model struct {
	ctx        context.Context
	bus        Publisher
	view       ViewState
	width      int
	height     int
	events     []event
	nowPlaying *messages.CurrentlyPlaying
	queue      list.Model
	queueSize  int
	entrants   map[string]bool
	nixRunning bool
	err        error
	help       help.Model
	keys       keyMap
}

// NewModel creates a monitor that publishes key-driven requests to bus.
func NewModel(ctx context.Context, bus Publisher) *Model {
	queue := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	queue.Title = "Song Queue"
	queue.SetShowHelp(false)

	return &Model{
		ctx:      ctx,
		bus:      bus,
		view:     EventsView,
		queue:    queue,
		entrants: make(map[string]bool),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init asks for the current queue.
func (m *Model) Init() tea.Cmd {
	return m.publish(messages.NewSongQueueRequest())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.queue.SetSize(max(msg.Width-4, 0), max(msg.Height-12, 0))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgBusEvent:
			ev := msg.data.(busEvent)
			m.record(ev)
			_ = messages.Dispatch(m.ctx, ev.msg, applier{m})
		case MsgPublishFailed:
			f := msg.data.(publishFailure)
			m.err = fmt.Errorf("publish %s: %w", f.kind, f.err)
		}
		return m, nil
	}

	if m.view == QueueView {
		var cmd tea.Cmd
		m.queue, cmd = m.queue.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		if m.view == EventsView {
			m.view = QueueView
		} else {
			m.view = EventsView
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.publish(messages.NewSongQueueRequest())
	case key.Matches(msg, m.keys.nixOn):
		return m, m.publish(messages.NewStartNixTimer())
	case key.Matches(msg, m.keys.nixOff):
		return m, m.publish(messages.NewStopNixTimer())
	case key.Matches(msg, m.keys.clear):
		m.events = nil
		m.err = nil
		return m, nil
	}

	if m.view == QueueView {
		var cmd tea.Cmd
		m.queue, cmd = m.queue.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) publish(msg messages.Message) tea.Cmd {
	return func() tea.Msg {
		if err := m.bus.Publish(m.ctx, msg); err != nil {
			return publishFailedMsg(msg.Kind(), err)
		}
		return nil
	}
}

func (m *Model) record(ev busEvent) {
	m.events = append(m.events, event{at: ev.at, kind: ev.msg.Kind(), text: ev.msg.String()})
	if over := len(m.events) - maxEvents; over > 0 {
		m.events = append([]event(nil), m.events[over:]...)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("songbot monitor"))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch m.view {
	case EventsView:
		b.WriteString(m.renderEvents())
	case QueueView:
		b.WriteString(m.renderQueue())
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderStatus() string {
	playing := styles.help.Render("Nothing playing")
	if m.nowPlaying != nil {
		line := m.nowPlaying.Song()
		if artists := m.nowPlaying.Artists(); len(artists) > 0 {
			line += " by " + strings.Join(artists, ", ")
		}
		if r := m.nowPlaying.RequesterDisplayName(); r != "" {
			line += fmt.Sprintf(" (requested by %s)", r)
		}
		playing = styles.ok.Render("♪ " + line)
	}

	nix := styles.help.Render("nix timer off")
	if m.nixRunning {
		nix = styles.warn.Render("nix timer on")
	}

	info := fmt.Sprintf("%d queued • %d raffle entrants • %s", m.queueSize, len(m.entrants), nix)
	return styles.panel.Render(playing + "\n" + info)
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, 2)
	for _, v := range []ViewState{EventsView, QueueView} {
		if v == m.view {
			tabs = append(tabs, styles.active.Render(v.String()))
		} else {
			tabs = append(tabs, styles.tab.Render(v.String()))
		}
	}
	return strings.Join(tabs, " ")
}

func (m *Model) renderEvents() string {
	if len(m.events) == 0 {
		return styles.help.Render("Waiting for events...")
	}

	events := m.events
	if limit := m.height - 12; limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}

	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = fmt.Sprintf("%s %s", styles.help.Render(ev.at.Format("15:04:05")), ev.text)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderQueue() string {
	if m.queueSize == 0 {
		return styles.help.Render("The song queue is empty. Press r to refresh.")
	}
	return m.queue.View()
}

// applier folds bus messages into the model's state.
type applier struct{ m *Model }

func (a applier) OnCurrentlyPlaying(_ context.Context, msg messages.CurrentlyPlaying) error {
	a.m.nowPlaying = &msg
	return nil
}

func (a applier) OnCurrentlyPlayingRequest(context.Context, messages.CurrentlyPlayingRequest) error {
	return nil
}

func (a applier) OnKeyboardRaffleRequest(_ context.Context, msg messages.KeyboardRaffleRequest) error {
	a.m.entrants[strings.ToLower(strings.TrimPrefix(msg.RequesterDisplayName(), "@"))] = true
	return nil
}

func (a applier) OnSendTwitchChat(context.Context, messages.SendTwitchChat) error { return nil }
func (a applier) OnSongRequest(context.Context, messages.SongRequest) error       { return nil }

func (a applier) OnStartNixTimer(context.Context, messages.StartNixTimer) error {
	a.m.nixRunning = true
	return nil
}

func (a applier) OnStopNixTimer(context.Context, messages.StopNixTimer) error {
	a.m.nixRunning = false
	return nil
}

func (a applier) OnSongAddedToSpotifyQueue(context.Context, messages.SongAddedToSpotifyQueue) error {
	a.m.queueSize++
	return nil
}

func (a applier) OnSongQueueRequest(context.Context, messages.SongQueueRequest) error { return nil }

func (a applier) OnSongQueue(_ context.Context, msg messages.SongQueue) error {
	queue := msg.Queue()
	a.m.queueSize = len(queue)
	a.m.queue.SetItems(queueItems(queue))
	return nil
}

func (a applier) OnRefundRewardRequest(context.Context, messages.RefundRewardRequest) error {
	return nil
}

var _ messages.Handler = applier{}
