package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/burncare/apiserver/internal/logger"
	"github.com/burncare/apiserver/internal/mq"
	"github.com/burncare/apiserver/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher sends an encoded payload to a broker channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// AccountEvents publishes account lifecycle events. A nil *AccountEvents or
// one without a publisher drops events silently.
type AccountEvents struct {
	pub     EventPublisher
	channel string
	log     *zap.Logger
	now     func() time.Time
}

func NewAccountEvents(pub EventPublisher, channel string, log *zap.Logger) *AccountEvents {
	return &AccountEvents{pub: pub, channel: channel, log: logger.OrNop(log), now: time.Now}
}

func (e *AccountEvents) emit(ctx context.Context, eventType string, account types.Account) SideEffect {
	effect := SideEffect{Name: "publish " + eventType}
	if e == nil || e.pub == nil {
		return effect
	}

	event := types.AccountEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		AccountID:  account.ID,
		ExternalID: account.ExternalID,
		Email:      account.Email,
		OccurredAt: e.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		effect.Err = fmt.Errorf("encode event: %w", err)
	} else if _, err := e.pub.Publish(ctx, e.channel, data, map[string]string{
		mq.AttrType:      eventType,
		mq.AttrAccountID: strconv.FormatInt(account.ID, 10),
	}); err != nil {
		effect.Err = err
	}

	if effect.Err != nil {
		e.log.Warn("failed to publish account event",
			zap.String("type", eventType),
			zap.Int64("account_id", account.ID),
			zap.Error(effect.Err),
		)
	}
	return effect
}

// ApprovalNotifier consumes account events and reports accounts awaiting
// administrative approval.
type ApprovalNotifier struct {
	log *zap.Logger
}

func NewApprovalNotifier(log *zap.Logger) *ApprovalNotifier {
	return &ApprovalNotifier{log: logger.OrNop(log)}
}

// Handle is an mq.Handler. Undecodable payloads are dropped rather than
// retried forever.
func (n *ApprovalNotifier) Handle(_ context.Context, msg mq.Message) error {
	var event types.AccountEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		n.log.Error("dropping malformed account event", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	switch event.Type {
	case types.EventAccountRegistered:
		n.log.Info("account pending approval",
			zap.Int64("account_id", event.AccountID),
			zap.String("email", event.Email),
			zap.Time("registered_at", event.OccurredAt),
		)
	case types.EventAccountApproved:
		n.log.Info("account approved", zap.Int64("account_id", event.AccountID))
	default:
		n.log.Debug("ignoring account event", zap.String("type", event.Type))
	}
	return nil
}
