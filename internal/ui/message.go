package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/songbot/internal/messages"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgBusEvent MsgKind = iota
	MsgPublishFailed
)

// Kind returns the message type.
func (m Msg) Kind() MsgKind { return m.kind }

type busEvent struct {
	at  time.Time
	msg messages.Message
}

// busEventMsg is the constructor for [MsgBusEvent]
func busEventMsg(msg messages.Message, at time.Time) Msg {
	return Msg{kind: MsgBusEvent, data: busEvent{at: at, msg: msg}}
}

type publishFailure struct {
	kind messages.Kind
	err  error
}

// publishFailedMsg is the constructor for [MsgPublishFailed]
func publishFailedMsg(kind messages.Kind, err error) Msg {
	return Msg{kind: MsgPublishFailed, data: publishFailure{kind: kind, err: err}}
}
