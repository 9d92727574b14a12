package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/config"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	pubnub "github.com/pubnub/go/v7"
)

// Publisher is the slice of the PubNub client the notifier needs.
type Publisher interface {
	Publish(channel string, message any) error
}

type pubnubPublisher struct {
	pn *pubnub.PubNub
}

func (p pubnubPublisher) Publish(channel string, message any) error {
	_, _, err := p.pn.Publish().Channel(channel).Message(message).Execute()
	return err
}

type bookingLine struct {
	TierID   string `json:"tier_id"`
	Quantity int    `json:"quantity"`
}

// bookingConfirmed is broadcast on the event channel so open checkout pages
// can refresh availability. It carries no attendee data.
type bookingConfirmed struct {
	Type      string        `json:"type"`
	Reference string        `json:"reference"`
	EventID   string        `json:"event_id"`
	Lines     []bookingLine `json:"lines"`
	Quantity  int           `json:"quantity"`
	At        time.Time     `json:"at"`
}

type PubNubNotifier struct {
	pub Publisher
	log *slog.Logger
}

func NewPubNubNotifier(cfg config.PubNubConfig, log *slog.Logger) *PubNubNotifier {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UserID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey

	return NewPubNubNotifierWithPublisher(pubnubPublisher{pn: pubnub.NewPubNub(pnCfg)}, log)
}

func NewPubNubNotifierWithPublisher(pub Publisher, log *slog.Logger) *PubNubNotifier {
	return &PubNubNotifier{pub: pub, log: log}
}

func Channel(eventID string) string {
	return "booking-" + eventID
}

func (n *PubNubNotifier) NotifyBookingConfirmed(ctx context.Context, booking *domain.Booking) {
	msg := bookingConfirmed{
		Type:      "booking_confirmed",
		Reference: booking.Reference,
		EventID:   booking.EventID,
		Quantity:  booking.Quantity(),
		At:        booking.CreatedAt,
	}
	for _, it := range booking.Items {
		msg.Lines = append(msg.Lines, bookingLine{TierID: it.TierID, Quantity: it.Quantity})
	}

	if err := n.pub.Publish(Channel(booking.EventID), msg); err != nil {
		n.log.WarnContext(ctx, "pubnub publish failed",
			"reference", booking.Reference,
			"event_id", booking.EventID,
			"error", err,
		)
		return
	}

	n.log.DebugContext(ctx, "booking confirmation published", "reference", booking.Reference)
}
