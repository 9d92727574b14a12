package domain

import "sort"

const DefaultMaxPerPerson = 10

// Selection maps tier id to requested quantity. Entries are always positive;
// a tier with nothing selected is absent from the map.
type Selection map[string]int

func (s Selection) Total() int {
	total := 0
	for _, q := range s {
		total += q
	}

	return total
}

func (s Selection) IsEmpty() bool {
	return s.Total() == 0
}

func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for id, q := range s {
		out[id] = q
	}

	return out
}

// TierIDs returns the selected tier ids in ascending order.
func (s Selection) TierIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// SelectionEngine applies quantity changes against a catalog snapshot.
// It never fails: invalid input degrades to a valid, possibly unchanged,
// selection.
type SelectionEngine struct {
	Tiers        TierIndex
	MaxPerPerson int
}

func NewSelectionEngine(tiers []TicketTier, maxPerPerson int) SelectionEngine {
	if maxPerPerson <= 0 {
		maxPerPerson = DefaultMaxPerPerson
	}

	return SelectionEngine{
		Tiers:        IndexTiers(tiers),
		MaxPerPerson: maxPerPerson,
	}
}

// Ceiling is the most a single tier may hold: min(available, maxPerPerson).
func (e SelectionEngine) Ceiling(tierID string) int {
	tier, ok := e.Tiers[tierID]
	if !ok {
		return 0
	}

	available := tier.Available()
	if available <= 0 {
		return 0
	}

	return min(available, e.MaxPerPerson)
}

// SetQuantity clamps the requested quantity to the tier ceiling first, then
// rejects the whole update if the order total would exceed MaxPerPerson.
func (e SelectionEngine) SetQuantity(sel Selection, tierID string, requested int) Selection {
	if _, ok := e.Tiers[tierID]; !ok {
		return sel.Clone()
	}

	allowed := max(0, min(requested, e.Ceiling(tierID)))

	next := sel.Clone()
	if allowed == 0 {
		delete(next, tierID)
	} else {
		next[tierID] = allowed
	}

	if next.Total() > e.MaxPerPerson {
		return sel.Clone()
	}

	return next
}

// Reconcile re-applies the per-tier ceilings after the snapshot changed.
// Entries for tiers that disappeared are dropped.
func (e SelectionEngine) Reconcile(sel Selection) Selection {
	out := make(Selection, len(sel))
	for _, id := range sel.TierIDs() {
		q := min(sel[id], e.Ceiling(id))
		if q > 0 {
			out[id] = q
		}
	}

	return out
}
