package transport

import (
	"context"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"go.uber.org/zap"
)

// Log is the transport used when no message channel is configured. It
// records what would have been sent and always succeeds.
type Log struct {
	logger *logging.Service
}

func NewLog(logger *logging.Service) *Log {
	return &Log{logger: logger}
}

func (l *Log) SendPrivate(_ context.Context, userID int64, text string) error {
	l.logger.Info("private message (no transport)",
		zap.Int64("user_id", userID),
		zap.Int("length", len(text)))
	return nil
}

func (l *Log) SendToGroup(_ context.Context, groupID int64, text string, affordance *Affordance) error {
	fields := []zap.Field{
		zap.Int64("group_id", groupID),
		zap.String("text", text),
	}
	if affordance != nil {
		fields = append(fields, zap.String("payload", affordance.Payload))
	}
	l.logger.Info("group message (no transport)", fields...)
	return nil
}
