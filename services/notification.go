package services

import (
	"context"
	"fmt"

	"civicvoice/logger"
	"civicvoice/model"

	"firebase.google.com/go/v4/messaging"
)

// Notifier alerts the admin dashboard devices about urgent complaints.
type Notifier interface {
	NotifyCritical(ctx context.Context, c CriticalComplaint) error
}

type CriticalComplaint struct {
	ID       string
	Category model.Category
	Summary  string
}

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier publishes to an FCM topic the admin apps subscribe to.
type FCMNotifier struct {
	client messageSender
	topic  string
	log    *logger.Logger
}

func NewFCMNotifier(client *messaging.Client, topic string, log *logger.Logger) *FCMNotifier {
	return &FCMNotifier{client: client, topic: topic, log: log}
}

func (n *FCMNotifier) NotifyCritical(ctx context.Context, c CriticalComplaint) error {
	body := c.Summary
	if r := []rune(body); len(r) > 160 {
		body = string(r[:157]) + "..."
	}
	message := &messaging.Message{
		Topic: n.topic,
		Notification: &messaging.Notification{
			Title: fmt.Sprintf("Critical %s complaint", c.Category),
			Body:  body,
		},
		Data: map[string]string{
			"complaintId": c.ID,
			"priority":    string(model.PriorityCritical),
			"category":    string(c.Category),
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}

	id, err := n.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("send fcm to topic %s: %w", n.topic, err)
	}
	n.log.Info("critical complaint notification sent", "complaint_id", c.ID, "message_id", id)
	return nil
}

type nopNotifier struct{}

func (nopNotifier) NotifyCritical(context.Context, CriticalComplaint) error { return nil }

// NopNotifier is used when Firebase Messaging is not configured.
func NopNotifier() Notifier { return nopNotifier{} }
