package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"repurposer/domain/model"
	"repurposer/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id is empty")
	}
	return pubsub.NewClient(ctx, projectID)
}

// PostStatusPubSub forwards post status events to a Pub/Sub topic, creating
// the topic on first use.
type PostStatusPubSub struct {
	PubSubClient *pubsub.Client
	TopicName    string

	once  sync.Once
	topic *pubsub.Topic
	err   error
}

func NewPostStatusPubSub(pubSubClient *pubsub.Client, topicName string) *PostStatusPubSub {
	if topicName == "" {
		topicName = "post-status"
	}
	return &PostStatusPubSub{PubSubClient: pubSubClient, TopicName: topicName}
}

func (p *PostStatusPubSub) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.once.Do(func() {
		topic := p.PubSubClient.Topic(p.TopicName)
		exists, err := topic.Exists(ctx)
		if err != nil {
			p.err = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", p.TopicName).Info("Topic doesn't exist - creating it")
			if topic, err = p.PubSubClient.CreateTopic(ctx, p.TopicName); err != nil {
				p.err = err
				return
			}
		}
		p.topic = topic
	})
	return p.topic, p.err
}

func (p *PostStatusPubSub) PublishPostStatus(ctx context.Context, evt model.PostStatusEvent) error {
	if p == nil || p.PubSubClient == nil {
		return nil
	}
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	serverID, err := topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":     evt.Type,
			"tenant":   evt.Tenant,
			"platform": string(evt.Platform),
			"status":   string(evt.Status),
		},
	}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).WithField("post_id", evt.PostID).Debug("Post status published")
	return nil
}
