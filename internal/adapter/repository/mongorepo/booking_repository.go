package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const bookingsCollection = "bookings"

// BookingRepository commits bookings against event documents. Inventory for
// every tier in a booking is consumed by one conditional update on the event
// document, which Mongo applies atomically. The booking document is written
// afterwards and the counters are put back if that write fails.
type BookingRepository struct {
	events   *mongo.Collection
	bookings *mongo.Collection
	log      *slog.Logger
}

func NewBookingRepository(db *mongo.Database, log *slog.Logger) *BookingRepository {
	return &BookingRepository{
		events:   db.Collection(eventsCollection),
		bookings: db.Collection(bookingsCollection),
		log:      log,
	}
}

// EnsureIndexes creates the unique indexes Persist relies on for idempotency.
func (br *BookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := br.bookings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "payment_token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_payment_token"),
		},
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_reference"),
		},
	})
	if err != nil {
		return fmt.Errorf("create booking indexes: %w", err)
	}

	return nil
}

func (br *BookingRepository) Persist(ctx context.Context, draft *domain.BookingDraft) (*domain.Booking, error) {
	existing, err := br.GetByPaymentToken(ctx, draft.PaymentToken)
	if err == nil {
		return existing, domain.ErrAlreadyCommitted
	}

	if !errors.Is(err, domain.ErrBookingNotFound) {
		return nil, err
	}

	items := append([]domain.BookingItem(nil), draft.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].TierID < items[j].TierID })

	if err := br.consume(ctx, draft.EventID, items); err != nil {
		return nil, err
	}

	booking := *draft
	booking.Items = items

	_, err = br.bookings.InsertOne(ctx, newBookingDocument(&booking))
	if err == nil {
		return &booking, nil
	}

	return br.resolveInsertFailure(ctx, &booking, err)
}

// resolveInsertFailure decides what a failed insert means. A timeout can hide
// a write that landed, so the counters are only put back once the token is
// known to have no booking of ours behind it.
func (br *BookingRepository) resolveInsertFailure(ctx context.Context, booking *domain.Booking, insertErr error) (*domain.Booking, error) {
	stored, err := br.GetByPaymentToken(context.WithoutCancel(ctx), booking.PaymentToken)
	switch {
	case err == nil && stored.ID == booking.ID:
		br.log.Warn("booking insert reported an error but the document was written",
			slog.String("reference", booking.Reference),
			slog.String("error", insertErr.Error()),
		)
		return stored, nil

	case err == nil:
		br.restore(ctx, booking.EventID, booking.Items)
		return stored, domain.ErrAlreadyCommitted

	case errors.Is(err, domain.ErrBookingNotFound):
		br.restore(ctx, booking.EventID, booking.Items)
		return nil, fmt.Errorf("insert booking: %w", insertErr)

	default:
		// Unknown outcome. Counters stay consumed: overstating sold
		// inventory cannot oversell.
		br.log.Error("booking insert outcome unknown, inventory left consumed",
			slog.String("event_id", booking.EventID),
			slog.String("reference", booking.Reference),
			slog.String("error", insertErr.Error()),
			slog.String("lookup_error", err.Error()),
			slog.Bool("alert", true),
		)
		return nil, fmt.Errorf("insert booking: %w", insertErr)
	}
}

// consume increments sold_quantity for every item in a single update. The
// filter only matches while every tier is on sale with enough units left.
func (br *BookingRepository) consume(ctx context.Context, eventID string, items []domain.BookingItem) error {
	conds := make(bson.A, 0, len(items))
	inc := bson.M{}
	filters := make([]interface{}, 0, len(items))

	for i, it := range items {
		ident := fmt.Sprintf("t%d", i)

		conds = append(conds, bson.M{"$gt": bson.A{
			bson.M{"$size": bson.M{"$filter": bson.M{
				"input": "$ticket_tiers",
				"as":    "tier",
				"cond": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$$tier.id", it.TierID}},
					bson.M{"$eq": bson.A{"$$tier.status", string(domain.TierOnSale)}},
					bson.M{"$gte": bson.A{
						bson.M{"$subtract": bson.A{"$$tier.total_quantity", "$$tier.sold_quantity"}},
						it.Quantity,
					}},
				}},
			}}},
			0,
		}})

		inc["ticket_tiers.$["+ident+"].sold_quantity"] = it.Quantity
		filters = append(filters, bson.M{ident + ".id": it.TierID})
	}

	filter := bson.M{
		"_id":   eventID,
		"$expr": bson.M{"$and": conds},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: filters})

	res, err := br.events.UpdateOne(ctx, filter, bson.M{"$inc": inc}, opts)
	if err != nil {
		return fmt.Errorf("consume inventory for event %s: %w", eventID, err)
	}

	if res.MatchedCount == 1 {
		return nil
	}

	return br.shortfall(ctx, eventID, items)
}

// shortfall explains a failed consume by re-reading the event.
func (br *BookingRepository) shortfall(ctx context.Context, eventID string, items []domain.BookingItem) error {
	var event eventDocument

	err := br.events.FindOne(ctx, bson.M{"_id": eventID}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("event %s: %w", eventID, domain.ErrEventNotFound)
		}

		return fmt.Errorf("read event %s: %w", eventID, err)
	}

	tiers := make(map[string]domain.TicketTier, len(event.Tiers))
	for _, d := range event.Tiers {
		tiers[d.ID] = domain.TicketTier{
			ID:            d.ID,
			Name:          d.Name,
			TotalQuantity: d.TotalQuantity,
			SoldQuantity:  d.SoldQuantity,
			Status:        domain.TierStatus(d.Status),
		}
	}

	for _, it := range items {
		tier, ok := tiers[it.TierID]
		if !ok {
			return fmt.Errorf("tier %s: %w", it.TierID, domain.ErrTierNotFound)
		}

		if tier.Available() < it.Quantity {
			return &domain.SoldOutError{
				TierID:    it.TierID,
				TierName:  tier.Name,
				Requested: it.Quantity,
				Available: tier.Available(),
			}
		}
	}

	// The counters moved back between the update and the read. Report the
	// first tier; the shopper retries against a fresh snapshot.
	first := tiers[items[0].TierID]

	return &domain.SoldOutError{
		TierID:    first.ID,
		TierName:  first.Name,
		Requested: items[0].Quantity,
		Available: first.Available(),
	}
}

func (br *BookingRepository) restore(ctx context.Context, eventID string, items []domain.BookingItem) {
	inc := bson.M{}
	filters := make([]interface{}, 0, len(items))

	for i, it := range items {
		ident := fmt.Sprintf("t%d", i)
		inc["ticket_tiers.$["+ident+"].sold_quantity"] = -it.Quantity
		filters = append(filters, bson.M{ident + ".id": it.TierID})
	}

	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: filters})

	_, err := br.events.UpdateOne(context.WithoutCancel(ctx), bson.M{"_id": eventID}, bson.M{"$inc": inc}, opts)
	if err != nil {
		br.log.Error("failed to restore inventory after booking insert failure",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
			slog.Bool("alert", true),
		)
	}
}

func (br *BookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	return br.findOne(ctx, bson.M{"reference": reference})
}

func (br *BookingRepository) GetByPaymentToken(ctx context.Context, token string) (*domain.Booking, error) {
	return br.findOne(ctx, bson.M{"payment_token": token})
}

func (br *BookingRepository) findOne(ctx context.Context, filter bson.M) (*domain.Booking, error) {
	var doc bookingDocument

	err := br.bookings.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBookingNotFound
		}

		return nil, fmt.Errorf("find booking: %w", err)
	}

	return doc.toDomain()
}
