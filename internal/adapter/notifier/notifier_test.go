package notifier_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/notifier"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/platform/logging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(channel string, message any) error {
	args := m.Called(channel, message)
	return args.Error(0)
}

func booking() *domain.Booking {
	return &domain.Booking{
		Reference:   "RW-ABCDEFGH",
		EventID:     "evt-1",
		Currency:    "USD",
		TotalAmount: decimal.RequireFromString("103.20"),
		Attendee:    domain.AttendeeInfo{Name: "Ada", Email: "ada@example.com"},
		Items: []domain.BookingItem{
			{TierID: "ga", Quantity: 2},
		},
	}
}

func TestPubNubNotifier_PublishesToEventChannel(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", "booking-evt-1", mock.MatchedBy(func(msg any) bool {
		raw, err := json.Marshal(msg)
		if err != nil {
			return false
		}
		s := string(raw)
		return strings.Contains(s, `"reference":"RW-ABCDEFGH"`) &&
			strings.Contains(s, `"quantity":2`) &&
			!strings.Contains(s, "ada@example.com")
	})).Return(nil).Once()

	n := notifier.NewPubNubNotifierWithPublisher(pub, logging.Discard())
	n.NotifyBookingConfirmed(context.Background(), booking())

	pub.AssertExpectations(t)
}

func TestPubNubNotifier_PublishErrorIsLogged(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("network down")).Once()

	var buf bytes.Buffer
	n := notifier.NewPubNubNotifierWithPublisher(pub, logging.New("debug", "text", &buf))

	assert.NotPanics(t, func() {
		n.NotifyBookingConfirmed(context.Background(), booking())
	})
	assert.Contains(t, buf.String(), "pubnub publish failed")
	pub.AssertExpectations(t)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	notifier.NewLogNotifier(logging.New("info", "text", &buf)).NotifyBookingConfirmed(context.Background(), booking())

	assert.Contains(t, buf.String(), "RW-ABCDEFGH")
	assert.Contains(t, buf.String(), "total=103.20")
}
