package servicebus

import (
	"context"
	"encoding/json"
	"errors"

	"repurposer/domain/model"
	"repurposer/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus authenticates with the default Azure credential chain.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, errors.New("service bus namespace is empty")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

type PostStatusServiceBus struct {
	AzservicebusClient *azservicebus.Client
	Queue              string
}

func NewPostStatusServiceBus(azServiceBusClient *azservicebus.Client, queue string) *PostStatusServiceBus {
	if queue == "" {
		queue = "post-status"
	}
	return &PostStatusServiceBus{AzservicebusClient: azServiceBusClient, Queue: queue}
}

// NewMessage builds the queue message for an event with routing properties.
func NewMessage(evt model.PostStatusEvent) (*azservicebus.Message, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	contentType := "application/json"
	subject := evt.Type
	return &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		ApplicationProperties: map[string]interface{}{
			"tenant":   evt.Tenant,
			"platform": string(evt.Platform),
			"status":   string(evt.Status),
		},
	}, nil
}

func (s *PostStatusServiceBus) PublishPostStatus(ctx context.Context, evt model.PostStatusEvent) error {
	if s == nil || s.AzservicebusClient == nil {
		return nil
	}
	msg, err := NewMessage(evt)
	if err != nil {
		return err
	}
	sender, err := s.AzservicebusClient.NewSender(s.Queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		err := sender.Close(ctx)
		if err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, context.Background())

	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
