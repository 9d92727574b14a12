package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
)

// Store keeps tiers and bookings in process memory. One mutex makes Persist
// atomic, which is all the commit contract needs for local runs and tests.
type Store struct {
	mu       sync.Mutex
	tiers    map[string][]domain.TicketTier
	bookings map[string]*domain.Booking
	byToken  map[string]string
}

func NewStore() *Store {
	return &Store{
		tiers:    make(map[string][]domain.TicketTier),
		bookings: make(map[string]*domain.Booking),
		byToken:  make(map[string]string),
	}
}

// SeedTiers adds or replaces tiers, keyed by event and tier id.
func (s *Store) SeedTiers(tiers ...domain.TicketTier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tiers {
		list := s.tiers[t.EventID]
		replaced := false
		for i := range list {
			if list[i].ID == t.ID {
				list[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, t)
		}
		s.tiers[t.EventID] = list
	}
}

func (s *Store) ListByEvent(_ context.Context, eventID string) ([]domain.TicketTier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.TicketTier(nil), s.tiers[eventID]...), nil
}

func (s *Store) Persist(_ context.Context, draft *domain.BookingDraft) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := s.byToken[draft.PaymentToken]; ok {
		return cloneBooking(s.bookings[ref]), domain.ErrAlreadyCommitted
	}

	if _, taken := s.bookings[draft.Reference]; taken {
		return nil, fmt.Errorf("booking reference %s already used", draft.Reference)
	}

	list := s.tiers[draft.EventID]
	index := make(map[string]int, len(list))
	for i, t := range list {
		index[t.ID] = i
	}

	items := append([]domain.BookingItem(nil), draft.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].TierID < items[j].TierID })

	for _, it := range items {
		i, ok := index[it.TierID]
		if !ok {
			return nil, fmt.Errorf("tier %s: %w", it.TierID, domain.ErrTierNotFound)
		}

		if avail := list[i].Available(); avail < it.Quantity {
			return nil, &domain.SoldOutError{
				TierID:    it.TierID,
				TierName:  list[i].Name,
				Requested: it.Quantity,
				Available: avail,
			}
		}
	}

	for _, it := range items {
		list[index[it.TierID]].SoldQuantity += it.Quantity
	}

	stored := cloneBooking(draft)
	s.bookings[stored.Reference] = stored
	s.byToken[stored.PaymentToken] = stored.Reference

	return cloneBooking(stored), nil
}

func (s *Store) GetByReference(_ context.Context, reference string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[reference]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}

	return cloneBooking(b), nil
}

func (s *Store) GetByPaymentToken(_ context.Context, token string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.byToken[token]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}

	return cloneBooking(s.bookings[ref]), nil
}

func (s *Store) Invalidate(context.Context, string) error {
	return nil
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	if b == nil {
		return nil
	}

	out := *b
	out.Items = append([]domain.BookingItem(nil), b.Items...)

	return &out
}
