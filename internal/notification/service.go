package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/queue"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Service feeds record events from a Pub/Sub subscription into the intake.
type Service struct {
	pubsubClient *pubsub.Client
	intake       *Intake
	topicName    string
	subName      string
	logger       *logger.Logger
}

func NewService(ctx context.Context, projectID, topicName, subName, credentialsFile string, intake *Intake, log *logger.Logger) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Service{
		pubsubClient: client,
		intake:       intake,
		topicName:    topicName,
		subName:      subName,
		logger:       log,
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info("[PubSub] Starting record event listener with topic: %s, subscription: %s", s.topicName, s.subName)

	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		s.logger.Error("[PubSub] %v", err)
		return
	}

	s.logger.Info("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg.ID, msg.Data)
		// Best-effort delivery: one attempt per event, then ack.
		msg.Ack()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking subscription existence: %w", err)
	}
	if exists {
		return sub, nil
	}

	topic := s.pubsubClient.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking topic existence: %w", err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist, cannot create subscription", s.topicName)
	}

	sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	s.logger.Info("[PubSub] Created subscription: %s", s.subName)
	return sub, nil
}

func (s *Service) handleMessage(ctx context.Context, messageID string, data []byte) {
	ev, err := DecodeRecordEvent(data)
	if err != nil {
		s.logger.Error("[PubSub] Dropping message %s: %v", messageID, err)
		return
	}
	// Publishers that omit an event id fall back to the broker's message id.
	if ev.ID == "" {
		ev.ID = messageID
	}

	if _, err := s.intake.Process(ctx, ev); err != nil && !errors.Is(err, queue.ErrMalformed) {
		s.logger.Warn("[PubSub] Event %s not delivered: %v", ev.ID, err)
	}
}

func (s *Service) Close() error {
	return s.pubsubClient.Close()
}
