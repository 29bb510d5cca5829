package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_JSON(t *testing.T) {
	e := New(ProductCreated, 7, "Pixel")
	data, err := json.Marshal(e)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "product_created", got["type"])
	assert.EqualValues(t, 7, got["id"])
	assert.Equal(t, "Pixel", got["name"])
	assert.Equal(t, "7", e.Key())
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := &Recorder{}

	require.NoError(t, r.Publish(ctx, TopicProducts, New(ProductCreated, 1, "a")))
	require.NoError(t, r.Publish(ctx, TopicCategories, New(CategoryDeleted, 2, "")))
	require.NoError(t, r.Publish(ctx, TopicProducts, New(ProductDeleted, 1, "")))

	assert.Equal(t, []string{ProductCreated, ProductDeleted}, r.Types(TopicProducts))
	assert.Len(t, r.Events(), 3)

	r.Err = errors.New("broker down")
	assert.Error(t, r.Publish(ctx, TopicProducts, New(ProductUpdated, 1, "")))
	assert.Len(t, r.Events(), 3)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), TopicUsers, New(UserRegistered, 1, "")))
	assert.NoError(t, p.Close())
}
