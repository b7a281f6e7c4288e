package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ytcurator/internal/models"
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
	MsgReply MsgKind = iota
	MsgProgress
)

type reply struct {
	text  string
	songs []models.Song
	err   error
}

// replyMsg is the constructor for [MsgReply]
func replyMsg(text string, songs []models.Song, err error) Msg {
	return Msg{kind: MsgReply, data: reply{text, songs, err}}
}

// progressMsg is the constructor for [MsgProgress]
func progressMsg(line string) Msg {
	return Msg{kind: MsgProgress, data: line}
}
