package notify

import (
	"context"

	"donorbridge/pkg/types"

	"github.com/sirupsen/logrus"
)

// LogNotifier records notices in the log. Used when no broker is configured.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendApproval(_ context.Context, notice types.Notice) error {
	n.entry(notice).Info("approval notice")
	return nil
}

func (n *LogNotifier) SendRejection(_ context.Context, notice types.Notice) error {
	n.entry(notice).WithField("reason", notice.Reason).Info("rejection notice")
	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}

func (n *LogNotifier) entry(notice types.Notice) *logrus.Entry {
	return n.logger.WithFields(logrus.Fields{
		"event":     notice.Event,
		"entity_id": notice.EntityID,
		"email":     notice.Email,
		"title":     notice.Title,
	})
}
