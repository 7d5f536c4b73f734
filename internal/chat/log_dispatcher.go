package chat

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogDispatcher records outbound messages in the log instead of delivering them.
// It is used when no chat platform is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates the dispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, to ConversationRef, msg Message) (MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return MessageRef{}, err
	}
	ref := MessageRef{ConversationID: to.ConversationID, ActivityID: uuid.NewString()}
	d.logger.Info("chat send",
		zap.String("conversation_id", to.ConversationID),
		zap.String("thread_id", to.ThreadID),
		zap.String("activity_id", ref.ActivityID),
		zap.String("text", msg.Text),
		zap.Int("mentions", len(msg.Mentions)),
		zap.Bool("card", msg.Card != nil))
	return ref, nil
}

func (d *LogDispatcher) Update(ctx context.Context, ref MessageRef, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Info("chat update",
		zap.String("conversation_id", ref.ConversationID),
		zap.String("activity_id", ref.ActivityID),
		zap.String("text", msg.Text),
		zap.Bool("card", msg.Card != nil))
	return nil
}
