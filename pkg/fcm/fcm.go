package fcm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// ErrUnregistered means the device token is permanently unusable and should
// be removed from the user's record.
var ErrUnregistered = errors.New("registration token not registered")

// AndroidChannel is the notification channel alarms are posted to on Android.
const AndroidChannel = "alarms"

// MessageSender is the subset of *messaging.Client used here.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient MessageSender
	icon            string
}

// NewClient creates a new FCM client using the provided credentials file
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return NewClientWithSender(messagingClient), nil
}

// NewClientWithSender builds a client around any MessageSender.
func NewClientWithSender(sender MessageSender) *Client {
	return &Client{messagingClient: sender, icon: "/icon-192.png"}
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title string
	Body  string
	Data  map[string]string // Custom data payload
	Tag   string            // Collapses repeated notifications on the device
	Link  string            // Absolute https URL opened on click (web only)
}

// SendToDevice sends one high-priority, zero-TTL message to a device token.
// Unregistered or malformed tokens are reported as ErrUnregistered.
func (c *Client) SendToDevice(ctx context.Context, token string, notification NotificationData) (string, error) {
	response, err := c.messagingClient.Send(ctx, BuildMessage(token, notification, c.icon))
	if err != nil {
		if isTokenError(err) {
			return "", fmt.Errorf("%w: %v", ErrUnregistered, err)
		}
		return "", fmt.Errorf("failed to send FCM message: %w", err)
	}
	return response, nil
}

// BuildMessage assembles the platform-specific message. Every platform gets
// immediate, high-urgency delivery with no queuing.
func BuildMessage(token string, n NotificationData, icon string) *messaging.Message {
	ttl := time.Duration(0)

	webpush := &messaging.WebpushConfig{
		Headers: map[string]string{
			"Urgency": "high",
			"TTL":     "0",
		},
		Notification: &messaging.WebpushNotification{
			Title:              n.Title,
			Body:               n.Body,
			Icon:               icon,
			Tag:                n.Tag,
			RequireInteraction: true,
		},
	}
	// FCM rejects non-https links with INVALID_ARGUMENT, which would read as a dead token.
	if strings.HasPrefix(n.Link, "https://") {
		webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: n.Link}
	}

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			TTL:      &ttl,
			Notification: &messaging.AndroidNotification{
				ChannelID: AndroidChannel,
				Tag:       n.Tag,
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":   "10",
				"apns-expiration": "0",
				"apns-push-type":  "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default", ThreadID: n.Tag},
			},
		},
		Webpush: webpush,
	}
}

func isTokenError(err error) bool {
	return messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err)
}
