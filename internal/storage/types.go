package storage

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines journal
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

type EntryKind string

const (
	KindStatus  EntryKind = "status"
	KindFailure EntryKind = "failure"
)

// JournalEntry records one outgoing message.
// Keep it compact and schema-stable.
type JournalEntry struct {
	At        time.Time `json:"at"`
	Kind      EntryKind `json:"kind"`
	ChatID    int64     `json:"chat_id"`
	Homework  string    `json:"homework,omitempty"`
	Status    string    `json:"status,omitempty"`
	Text      string    `json:"text"`
	Cursor    int64     `json:"cursor"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
}
