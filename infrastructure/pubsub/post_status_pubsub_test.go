package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"repurposer/domain/model"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublishPostStatus_NilClient(t *testing.T) {
	sink := NewPostStatusPubSub(nil, "")
	assert.Equal(t, "post-status", sink.TopicName)
	assert.NoError(t, sink.PublishPostStatus(context.Background(), model.PostStatusEvent{}))
}

func TestPublishPostStatus_CreatesTopicAndPublishes(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "proj", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	sink := NewPostStatusPubSub(client, "post-status")
	evt := model.PostStatusEvent{Type: "post_status", Tenant: "acme", PostID: 7, Platform: model.PlatformTwitter, Status: model.PostStatusPublished, OccurredAt: time.Now().UTC()}
	require.NoError(t, sink.PublishPostStatus(ctx, evt))
	require.NoError(t, sink.PublishPostStatus(ctx, evt))

	msgs := srv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "acme", msgs[0].Attributes["tenant"])
	assert.Equal(t, "published", msgs[0].Attributes["status"])
	var got model.PostStatusEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, int64(7), got.PostID)
}
