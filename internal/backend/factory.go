package backend

import (
	"context"
	"fmt"
	"log/slog"

	"kosh/internal/amqp"
	"kosh/internal/memory"
	"kosh/internal/services"
	"kosh/internal/storage"
	"kosh/internal/store"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, recalculations will run inline", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result := f.assemble(repo, amqpClient, config)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	st := memory.New()
	result := f.assemble(st, nil, config)

	f.logger.Info("Initialized memory backend")

	return result, nil
}

func (f *DefaultFactory) assemble(st store.Store, amqpClient *amqp.Client, config Config) *Result {
	recalc := services.NewRecalcService(st, config.Epoch)
	txns := services.NewTransactionService(st, amqpClient, recalc)

	return &Result{
		Store:        st,
		AMQP:         amqpClient,
		Transactions: txns,
		Recalc:       recalc,
		Cleanup:      txns.Close,
	}
}
