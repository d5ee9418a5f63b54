package server

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"pennywise/internal/broker"
	"pennywise/internal/config"
	"pennywise/internal/database"
	"pennywise/internal/events"
	"pennywise/internal/logger"
	"pennywise/internal/notify"
	"pennywise/internal/store"
	"pennywise/internal/store/docstore"
	"pennywise/internal/store/sqlstore"
)

// OpenStores connects the configured persistence backend. The returned func
// releases the connection.
func OpenStores(ctx context.Context, cfg *config.Config) (*store.Stores, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		return docstore.New(client), func() { _ = client.Close() }, nil

	default:
		dbManager, err := database.NewManager(database.NewConfig(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database manager: %w", err)
		}
		if err := dbManager.RunMigrations(); err != nil {
			_ = dbManager.Close()
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		return sqlstore.New(dbManager.DB()), func() { _ = dbManager.Close() }, nil
	}
}

// Messaging is the outbound side of the application: where alerts go and
// which extra handlers observe committed transactions.
type Messaging struct {
	Notifier notify.Notifier
	Handlers []events.Handler
	close    func()
}

// Close releases the broker connection, if any.
func (m *Messaging) Close() {
	if m.close != nil {
		m.close()
	}
}

// ConnectMessaging dials the broker when AMQP_URL is set. Without it, alerts
// are written to the log and no events leave the process.
func ConnectMessaging(cfg *config.Config) (*Messaging, error) {
	if cfg.AMQPURL == "" {
		return &Messaging{Notifier: notify.NewLogNotifier()}, nil
	}

	client, err := broker.Dial(cfg.AMQPURL, cfg.AMQPExchange, broker.TransactionsKey, broker.NotificationsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	logger.Get().Infow("publishing events to broker", "exchange", cfg.AMQPExchange)

	return &Messaging{
		Notifier: notify.NewBrokerNotifier(client),
		Handlers: []events.Handler{broker.NewEventPublisher(client)},
		close:    func() { _ = client.Close() },
	}, nil
}
