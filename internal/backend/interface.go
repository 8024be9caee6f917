// Package backend wires a configured data backend into the service stack.
package backend

import (
	"context"

	"kosh/internal/amqp"
	"kosh/internal/core"
	"kosh/internal/services"
	"kosh/internal/store"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result bundles the store and the services built on top of it.
type Result struct {
	Store        store.Store
	AMQP         *amqp.Client
	Transactions *services.TransactionService
	Recalc       *services.RecalcService
	Cleanup      CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Recalc queue (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger
	Epoch core.Date
}

// BackendType represents the type of backend.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid.
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
