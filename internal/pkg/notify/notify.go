// Package notify publishes domain events to interested consumers
// (admin dashboards, mobile push workers) over a message queue.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Event is a notification payload published to the queue.
type Event struct {
	Type        string    `json:"type"`
	CommunityID int64     `json:"communityId"`
	MemberID    int64     `json:"memberId,omitempty"`
	HouseholdID int64     `json:"householdId,omitempty"`
	EntryLogID  int64     `json:"entryLogId,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Event types.
const (
	EventMemberApproved  = "member.approved"
	EventMemberRejected  = "member.rejected"
	EventHeadChanged     = "household.head_changed"
	EventMemberAdmitted  = "household.member_admitted"
	EventMemberRemoved   = "household.member_removed"
	EventEntryGranted    = "gate.entry_granted"
	EventEntryDenied     = "gate.entry_denied"
	EventProviderClocked = "gate.provider_clocked_out"
)

// Notifier publishes events. Publishing is best-effort: callers log
// failures and carry on, they never roll back domain state over a
// notification.
type Notifier interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// LogNotifier writes events to the log instead of a broker. Used when
// RabbitMQ is not configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a Notifier that only logs.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(_ context.Context, evt Event) error {
	n.logger.Info().
		Str("type", evt.Type).
		Int64("communityId", evt.CommunityID).
		Msg("Notification (broker not configured)")
	return nil
}

func (n *LogNotifier) Close() error { return nil }
