package servicebus

import (
	"context"
	"encoding/json"
	"testing"

	"repurposer/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishPostStatus_NilClient(t *testing.T) {
	sink := NewPostStatusServiceBus(nil, "")
	assert.Equal(t, "post-status", sink.Queue)
	assert.NoError(t, sink.PublishPostStatus(context.Background(), model.PostStatusEvent{}))
}

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(model.PostStatusEvent{Type: "post_status", Tenant: "acme", PostID: 3, Platform: model.PlatformLinkedIn, Status: model.PostStatusFailed})
	require.NoError(t, err)
	assert.Equal(t, "application/json", *msg.ContentType)
	assert.Equal(t, "post_status", *msg.Subject)
	assert.Equal(t, "acme", msg.ApplicationProperties["tenant"])
	assert.Equal(t, "failed", msg.ApplicationProperties["status"])

	var evt model.PostStatusEvent
	require.NoError(t, json.Unmarshal(msg.Body, &evt))
	assert.Equal(t, int64(3), evt.PostID)
}

func TestNewServiceBus_EmptyNamespace(t *testing.T) {
	_, err := NewServiceBus(context.Background(), "")
	assert.Error(t, err)
}
