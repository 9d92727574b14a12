package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const eventsCollection = "events"

// EventRepository reads tier snapshots from event documents, which embed
// their tiers in a ticket_tiers array.
type EventRepository struct {
	collection *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{
		collection: db.Collection(eventsCollection),
	}
}

// ListByEvent returns an empty slice for an unknown event.
func (er *EventRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.TicketTier, error) {
	var event eventDocument

	err := er.collection.FindOne(ctx, bson.M{"_id": eventID}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []domain.TicketTier{}, nil
		}

		return nil, fmt.Errorf("find event %s: %w", eventID, err)
	}

	docs := append([]tierDocument(nil), event.Tiers...)
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].SortOrder != docs[j].SortOrder {
			return docs[i].SortOrder < docs[j].SortOrder
		}
		return docs[i].ID < docs[j].ID
	})

	tiers := make([]domain.TicketTier, 0, len(docs))
	for _, d := range docs {
		t, err := d.toDomain(event.ID)
		if err != nil {
			return nil, err
		}

		tiers = append(tiers, t)
	}

	return tiers, nil
}
