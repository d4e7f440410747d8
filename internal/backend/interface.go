// Package backend selects and builds the record store implementation from
// configuration: in-memory, Google Sheets, or SQLite with asynchronous
// spreadsheet mirroring.
package backend

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/records"
)

// CleanupFunc releases the backend's resources.
type CleanupFunc func() error

// Result bundles the built store with its optional sync publisher and
// cleanup. Publisher is non-nil only for the sqlite backend with AMQP
// configured.
type Result struct {
	Store     records.Store
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates record stores based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID string
}

// Type identifies a record store implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	SheetsBackend Type = "sheets"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
