// Package notify delivers best-effort notifications to patient-facing
// identities. Delivery failures are logged and never fail the business
// operation that triggered them.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cyphermed/record-access-api/internal/clock"
	"github.com/cyphermed/record-access-api/internal/dao"
	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/pkg/utils"
)

// Sink delivers one notification.
type Sink interface {
	Deliver(ctx context.Context, notification *models.Notification) error
}

// StoreSink persists notifications so clients can poll them later.
type StoreSink struct {
	notificationDAO dao.NotificationDAOContract
}

// NewStoreSink creates a store-backed sink
func NewStoreSink(notificationDAO dao.NotificationDAOContract) *StoreSink {
	return &StoreSink{notificationDAO: notificationDAO}
}

// Deliver persists the notification
func (s *StoreSink) Deliver(ctx context.Context, notification *models.Notification) error {
	return s.notificationDAO.Create(ctx, notification)
}

// LogSink writes notifications to the application log. Used when no
// notification store is configured.
type LogSink struct {
	logger *logrus.Logger
}

// NewLogSink creates a log-backed sink
func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Deliver logs the notification
func (s *LogSink) Deliver(ctx context.Context, notification *models.Notification) error {
	s.logger.WithFields(logrus.Fields{
		"target":   notification.TargetIdentity,
		"type":     notification.Type,
		"priority": notification.Priority,
		"title":    notification.Title,
	}).Info(notification.Message)
	return nil
}

// Notifier builds and delivers notifications through the configured sink.
type Notifier struct {
	sink   Sink
	clock  clock.Clock
	logger *logrus.Logger
}

// NewNotifier creates a Notifier
func NewNotifier(sink Sink, clk clock.Clock, logger *logrus.Logger) *Notifier {
	return &Notifier{sink: sink, clock: clk, logger: logger}
}

// Send builds a notification and hands it to the sink. Errors are logged,
// not returned.
func (n *Notifier) Send(ctx context.Context, targetIdentity string, notificationType models.NotificationType, priority models.NotificationPriority, title, message string, payload *string) {
	notification := &models.Notification{
		NotificationID: utils.GenerateNotificationID(),
		TargetIdentity: targetIdentity,
		Type:           notificationType,
		Title:          title,
		Message:        message,
		Priority:       priority,
		Payload:        payload,
		Read:           false,
		CreatedTime:    utils.TimeToMillis(n.clock.Now()),
	}

	if err := n.sink.Deliver(ctx, notification); err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"target": targetIdentity,
			"type":   notificationType,
		}).Warn("Failed to deliver notification")
	}
}
