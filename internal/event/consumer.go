package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DylanCerv/sublimacion/internal/engine"
	pkgkafka "github.com/DylanCerv/sublimacion/pkg/kafka"
)

// Refresher reloads the in-memory catalog.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Consumer keeps the search index and the local catalog in step with catalog
// events. Events published by this same instance do not trigger a refresh;
// the mutation that produced them already awaited one.
type Consumer struct {
	indexer    engine.Indexer
	refresher  Refresher
	instanceID string
	logger     *slog.Logger
}

// NewConsumer creates a catalog event consumer. indexer may be nil when no
// remote search engine is configured.
func NewConsumer(indexer engine.Indexer, refresher Refresher, instanceID string, logger *slog.Logger) *Consumer {
	return &Consumer{
		indexer:    indexer,
		refresher:  refresher,
		instanceID: instanceID,
		logger:     logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	var err error
	switch event.EventType {
	case TypeProductCreated, TypeProductUpdated:
		err = c.handleProductUpserted(ctx, event)
	case TypeProductDeleted:
		err = c.handleProductDeleted(ctx, event)
	case TypeCollectionCreated, TypeCollectionUpdated, TypeCollectionDeleted:
		// Products reference collections by name, so the index is unaffected.
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
	if err != nil {
		return err
	}

	c.refresh(ctx, event)
	return nil
}

func (c *Consumer) handleProductUpserted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	if c.indexer == nil {
		return nil
	}

	if err := c.indexer.Index(ctx, data.Product); err != nil {
		return fmt.Errorf("index product from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "indexed product from event",
		slog.String("event_type", event.EventType),
		slog.String("product_id", data.Product.ID),
	)
	return nil
}

func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data DeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}
	if c.indexer == nil {
		return nil
	}

	if err := c.indexer.Delete(ctx, data.ID); err != nil {
		return fmt.Errorf("delete product from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "deleted product from deleted event",
		slog.String("product_id", data.ID),
	)
	return nil
}

// refresh reloads the catalog for events from other instances. A failed
// refresh is logged only; the periodic refresh picks the change up later.
func (c *Consumer) refresh(ctx context.Context, event *pkgkafka.Event) {
	if c.refresher == nil || event.Metadata[MetadataInstance] == c.instanceID {
		return
	}
	if err := c.refresher.Refresh(ctx); err != nil {
		c.logger.WarnContext(ctx, "catalog refresh after event failed",
			slog.String("event_type", event.EventType),
			slog.String("error", err.Error()),
		)
	}
}
