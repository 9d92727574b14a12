package mongorepo

import (
	"context"
	"testing"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/platform/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const (
	eventsNS   = "checkout.events"
	bookingsNS = "checkout.bookings"
)

func toBSON(t *testing.T, v any) bson.D {
	t.Helper()

	raw, err := bson.Marshal(v)
	require.NoError(t, err)

	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))

	return d
}

func updated(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func countCommands(mt *mtest.T, name string) int {
	n := 0
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName == name {
			n++
		}
	}

	return n
}

func noDocuments(ns string) bson.D {
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
}

func springShow(gaSold int) eventDocument {
	return eventDocument{
		ID:   "spring-show",
		Name: "Spring Show",
		Tiers: []tierDocument{
			{ID: "vip", Name: "VIP", Type: "vip", UnitPrice: "150.00", Currency: "USD", TotalQuantity: 20, SoldQuantity: 0, Status: "on_sale", SortOrder: 2},
			{ID: "ga", Name: "General", Type: "general", UnitPrice: "50.00", Currency: "USD", TotalQuantity: 100, SoldQuantity: gaSold, Status: "on_sale", SortOrder: 1},
		},
	}
}

func newDraft() *domain.BookingDraft {
	id := uuid.New()
	price := decimal.RequireFromString("50.00")

	return &domain.BookingDraft{
		ID:            id,
		Reference:     "RW-MNPQ2345",
		EventID:       "spring-show",
		PaymentToken:  "pay_1",
		Attendee:      domain.AttendeeInfo{Name: "Ana", Email: "ana@example.com"},
		Currency:      "USD",
		Subtotal:      decimal.RequireFromString("100.00"),
		ProcessingFee: decimal.RequireFromString("3.20"),
		TotalAmount:   decimal.RequireFromString("103.20"),
		Status:        domain.BookingConfirmed,
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Items: []domain.BookingItem{
			{ID: uuid.New(), BookingID: id, TierID: "ga", TierName: "General", Quantity: 2, UnitPrice: price, LineTotal: price.Mul(decimal.NewFromInt(2))},
		},
	}
}

func TestEventRepository_ListByEvent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("orders tiers by sort order", func(mt *mtest.T) {
		repo := NewEventRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, eventsNS, mtest.FirstBatch, toBSON(mt.T, springShow(40))))

		tiers, err := repo.ListByEvent(context.Background(), "spring-show")

		require.NoError(mt, err)
		require.Len(mt, tiers, 2)
		assert.Equal(mt, "ga", tiers[0].ID)
		assert.Equal(mt, "spring-show", tiers[0].EventID)
		assert.Equal(mt, 60, tiers[0].Available())
		assert.True(mt, decimal.RequireFromString("150").Equal(tiers[1].UnitPrice))
	})

	mt.Run("unknown event is empty", func(mt *mtest.T) {
		repo := NewEventRepository(mt.DB)
		mt.AddMockResponses(noDocuments(eventsNS))

		tiers, err := repo.ListByEvent(context.Background(), "nope")

		require.NoError(mt, err)
		assert.Empty(mt, tiers)
	})

	mt.Run("driver error", func(mt *mtest.T) {
		repo := NewEventRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized"}))

		_, err := repo.ListByEvent(context.Background(), "spring-show")

		assert.ErrorContains(mt, err, "not authorized")
	})
}

func TestBookingRepository_Persist(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("commits", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		mt.AddMockResponses(
			noDocuments(bookingsNS),
			updated(1),
			mtest.CreateSuccessResponse(),
		)

		draft := newDraft()
		booking, err := repo.Persist(ctx, draft)

		require.NoError(mt, err)
		assert.Equal(mt, draft.Reference, booking.Reference)
		assert.Equal(mt, 2, booking.Quantity())
	})

	mt.Run("token already booked", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		stored := newDraft()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch, toBSON(mt.T, newBookingDocument(stored))))

		booking, err := repo.Persist(ctx, newDraft())

		assert.ErrorIs(mt, err, domain.ErrAlreadyCommitted)
		require.NotNil(mt, booking)
		assert.Equal(mt, stored.ID, booking.ID)
		assert.True(mt, decimal.RequireFromString("103.20").Equal(booking.TotalAmount))
	})

	mt.Run("sold out", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		mt.AddMockResponses(
			noDocuments(bookingsNS),
			updated(0),
			mtest.CreateCursorResponse(0, eventsNS, mtest.FirstBatch, toBSON(mt.T, springShow(99))),
		)

		booking, err := repo.Persist(ctx, newDraft())

		assert.Nil(mt, booking)
		var soldOut *domain.SoldOutError
		require.ErrorAs(mt, err, &soldOut)
		assert.Equal(mt, "ga", soldOut.TierID)
		assert.Equal(mt, 1, soldOut.Available)
	})

	mt.Run("unknown tier", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		event := springShow(0)
		event.Tiers = event.Tiers[:1]
		mt.AddMockResponses(
			noDocuments(bookingsNS),
			updated(0),
			mtest.CreateCursorResponse(0, eventsNS, mtest.FirstBatch, toBSON(mt.T, event)),
		)

		_, err := repo.Persist(ctx, newDraft())

		assert.ErrorIs(mt, err, domain.ErrTierNotFound)
	})

	mt.Run("unknown event", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		mt.AddMockResponses(
			noDocuments(bookingsNS),
			updated(0),
			noDocuments(eventsNS),
		)

		_, err := repo.Persist(ctx, newDraft())

		assert.ErrorIs(mt, err, domain.ErrEventNotFound)
	})

	mt.Run("lost token race restores inventory", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		winner := newDraft()
		mt.AddMockResponses(
			noDocuments(bookingsNS),
			updated(1),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
			mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch, toBSON(mt.T, newBookingDocument(winner))),
			updated(1),
		)

		booking, err := repo.Persist(ctx, newDraft())

		assert.ErrorIs(mt, err, domain.ErrAlreadyCommitted)
		require.NotNil(mt, booking)
		assert.Equal(mt, winner.Reference, booking.Reference)
		assert.Equal(mt, 2, countCommands(mt, "update"))
	})

	mt.Run("insert failure restores inventory", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		mt.AddMockResponses(
			noDocuments(bookingsNS),
			updated(1),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 8, Name: "UnknownError", Message: "disk full"}),
			noDocuments(bookingsNS),
			updated(1),
		)

		booking, err := repo.Persist(ctx, newDraft())

		assert.Nil(mt, booking)
		assert.ErrorContains(mt, err, "disk full")
		assert.Equal(mt, 2, countCommands(mt, "update"))
	})

	mt.Run("insert error after the write landed keeps inventory", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		draft := newDraft()
		mt.AddMockResponses(
			noDocuments(bookingsNS),
			updated(1),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 50, Name: "MaxTimeMSExpired", Message: "operation exceeded time limit"}),
			mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch, toBSON(mt.T, newBookingDocument(draft))),
		)

		booking, err := repo.Persist(ctx, draft)

		require.NoError(mt, err)
		assert.Equal(mt, draft.ID, booking.ID)
		assert.Equal(mt, 1, countCommands(mt, "update"))
	})

	mt.Run("insert outcome unknown keeps inventory", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		mt.AddMockResponses(
			noDocuments(bookingsNS),
			updated(1),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 50, Name: "MaxTimeMSExpired", Message: "operation exceeded time limit"}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "lookup rejected"}),
		)

		booking, err := repo.Persist(ctx, newDraft())

		assert.Nil(mt, booking)
		assert.ErrorContains(mt, err, "operation exceeded time limit")
		assert.Equal(mt, 1, countCommands(mt, "update"))
	})
}

func TestBookingRepository_GetByReference(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		stored := newDraft()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch, toBSON(mt.T, newBookingDocument(stored))))

		booking, err := repo.GetByReference(context.Background(), stored.Reference)

		require.NoError(mt, err)
		assert.Equal(mt, "Ana", booking.Attendee.Name)
		require.Len(mt, booking.Items, 1)
		assert.Equal(mt, stored.Items[0].ID, booking.Items[0].ID)
		assert.Equal(mt, stored.ID, booking.Items[0].BookingID)
		assert.True(mt, stored.CreatedAt.Equal(booking.CreatedAt))
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		mt.AddMockResponses(noDocuments(bookingsNS))

		_, err := repo.GetByReference(context.Background(), "RW-NOPE")

		assert.ErrorIs(mt, err, domain.ErrBookingNotFound)
	})
}

func TestBookingRepository_EnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates", func(mt *mtest.T) {
		repo := NewBookingRepository(mt.DB, logging.Discard())
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, repo.EnsureIndexes(context.Background()))
	})
}
