// Package storage provides the optional notification journal.
//
// Every message the poll loop delivers (or fails to deliver) is appended as
// one entry. The journal is write-only from the bot's point of view; the poll
// cursor is never restored from it.
package storage
