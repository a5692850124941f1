package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "sublimacion.catalog.changed", Topic("catalog", "changed"))
}

func TestNewEvent_Fields(t *testing.T) {
	type productData struct {
		ProductID string `json:"product_id"`
		Name      string `json:"name"`
	}

	data := productData{ProductID: "p-1", Name: "F1 MCL38 Driver Series"}
	event, err := NewEvent("product.created", "p-1", "product", "catalog-service", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "product.created", event.EventType)
	assert.Equal(t, "p-1", event.AggregateID)
	assert.Equal(t, "product", event.AggregateType)
	assert.Equal(t, "catalog-service", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var got productData
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, data, got)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("test.event", "agg-1", "test", "svc", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.event")
}

func TestEvent_MarshalUnmarshal(t *testing.T) {
	original, err := NewEvent("collection.deleted", "c-1", "collection", "catalog-service", map[string]string{"name": "BMW"})
	require.NoError(t, err)
	original.WithCorrelationID("corr-abc").WithMetadata("actor", "admin")

	raw, err := original.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, "corr-abc", restored.CorrelationID)
	assert.Equal(t, "admin", restored.Metadata["actor"])
	assert.JSONEq(t, string(original.Data), string(restored.Data))
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{not json"))
	require.Error(t, err)
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestEvent_WithMetadata_NilMap(t *testing.T) {
	e := &Event{}
	e.WithMetadata("k", "v")
	assert.Equal(t, "v", e.Metadata["k"])
}
