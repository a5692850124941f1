package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DylanCerv/sublimacion/internal/domain"
	pkgkafka "github.com/DylanCerv/sublimacion/pkg/kafka"
	"github.com/DylanCerv/sublimacion/pkg/logger"
)

// Event types for catalog domain events. Every event travels on TopicCatalog,
// keyed by the aggregate ID.
const (
	TypeProductCreated    = "product.created"
	TypeProductUpdated    = "product.updated"
	TypeProductDeleted    = "product.deleted"
	TypeCollectionCreated = "collection.created"
	TypeCollectionUpdated = "collection.updated"
	TypeCollectionDeleted = "collection.deleted"
)

// Aggregate type constants.
const (
	AggregateProduct    = "product"
	AggregateCollection = "collection"
)

// SourceCatalogService identifies events published by this service.
const SourceCatalogService = "catalog-service"

// MetadataInstance names the metadata key carrying the publishing instance ID.
const MetadataInstance = "instance_id"

// TopicCatalog is the topic for all catalog domain events.
var TopicCatalog = pkgkafka.Topic("catalog", "events")

// ProductData is the payload of product.created and product.updated.
type ProductData struct {
	Product domain.Product `json:"product"`
}

// CollectionData is the payload of collection.created and collection.updated.
type CollectionData struct {
	Collection domain.Collection `json:"collection"`
}

// DeletedData is the payload of every *.deleted event.
type DeletedData struct {
	ID string `json:"id"`
}

// Publisher is the Kafka side the producer writes to.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog domain events.
type Producer struct {
	kafka      Publisher
	instanceID string
	logger     *slog.Logger
}

// NewProducer creates a new event producer. instanceID is stamped on every
// event so the consumer can tell its own events apart.
func NewProducer(kafka Publisher, instanceID string, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:      kafka,
		instanceID: instanceID,
		logger:     logger,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product domain.Product) error {
	return p.publish(ctx, TypeProductCreated, product.ID, AggregateProduct, ProductData{Product: product})
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product domain.Product) error {
	return p.publish(ctx, TypeProductUpdated, product.ID, AggregateProduct, ProductData{Product: product})
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TypeProductDeleted, id, AggregateProduct, DeletedData{ID: id})
}

// PublishCollectionCreated publishes a collection.created event.
func (p *Producer) PublishCollectionCreated(ctx context.Context, c domain.Collection) error {
	return p.publish(ctx, TypeCollectionCreated, c.ID, AggregateCollection, CollectionData{Collection: c})
}

// PublishCollectionUpdated publishes a collection.updated event.
func (p *Producer) PublishCollectionUpdated(ctx context.Context, c domain.Collection) error {
	return p.publish(ctx, TypeCollectionUpdated, c.ID, AggregateCollection, CollectionData{Collection: c})
}

// PublishCollectionDeleted publishes a collection.deleted event.
func (p *Producer) PublishCollectionDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TypeCollectionDeleted, id, AggregateCollection, DeletedData{ID: id})
}

func (p *Producer) publish(ctx context.Context, eventType, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	event.WithMetadata(MetadataInstance, p.instanceID)
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		event.WithCorrelationID(cid)
	}

	if err := p.kafka.Publish(ctx, TopicCatalog, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published catalog event",
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
