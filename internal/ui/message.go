package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/roster/internal/paging"
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
	MsgMounted MsgKind = iota
	MsgLoaderUpdate
	MsgScrollCheck
	MsgPageLoaded
	MsgUnmounted
)

// mountedMsg is the constructor for [MsgMounted]
func mountedMsg(err error) Msg {
	return Msg{kind: MsgMounted, data: err}
}

// loaderUpdateMsg is the constructor for [MsgLoaderUpdate]
func loaderUpdateMsg(u paging.Update) Msg {
	return Msg{kind: MsgLoaderUpdate, data: u}
}

// scrollCheckMsg is the constructor for [MsgScrollCheck]. Only the check carrying the latest tag
// runs, which is what debounces cursor movement.
func scrollCheckMsg(tag int) Msg {
	return Msg{kind: MsgScrollCheck, data: tag}
}

// pageLoadedMsg is the constructor for [MsgPageLoaded]
func pageLoadedMsg(issued bool) Msg {
	return Msg{kind: MsgPageLoaded, data: issued}
}

// unmountedMsg is the constructor for [MsgUnmounted]
func unmountedMsg() Msg {
	return Msg{kind: MsgUnmounted}
}

func (m Msg) err() error {
	err, _ := m.data.(error)
	return err
}

func (m Msg) update() paging.Update {
	u, _ := m.data.(paging.Update)
	return u
}

func (m Msg) tag() int {
	t, _ := m.data.(int)
	return t
}

func (m Msg) issued() bool {
	ok, _ := m.data.(bool)
	return ok
}
