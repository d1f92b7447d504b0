package notification

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"
)

type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Pusher sends a push message to a single device token.
type Pusher interface {
	Push(ctx context.Context, msg Message) error
}

type NoopPusher struct{}

func (NoopPusher) Push(ctx context.Context, msg Message) error {
	log.Tracef("push disabled, dropping %q", msg.Title)
	return nil
}

// FCMPusher delivers messages through the Firebase Cloud Messaging HTTP v1 API.
type FCMPusher struct {
	service   *fcm.Service
	projectId string
}

// NewFCMPusher authenticates with a service account key file.
func NewFCMPusher(ctx context.Context, projectId, credentialsFile string) (*FCMPusher, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read FCM credentials file: %w", err)
	}
	config, err := google.JWTConfigFromJSON(credentials, fcm.FirebaseMessagingScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse FCM credentials: %w", err)
	}
	service, err := fcm.NewService(ctx, option.WithHTTPClient(config.Client(context.Background())))
	if err != nil {
		return nil, fmt.Errorf("unable to create FCM service: %w", err)
	}
	return &FCMPusher{service: service, projectId: projectId}, nil
}

func (p *FCMPusher) Push(ctx context.Context, msg Message) error {
	request := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: msg.Token,
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		},
	}
	_, err := p.service.Projects.Messages.Send("projects/"+p.projectId, request).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("FCM send failed: %w", err)
	}
	return nil
}
