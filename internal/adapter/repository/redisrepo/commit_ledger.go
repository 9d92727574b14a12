package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

// CommitLedger records which payment tokens have been turned into bookings.
// A key holds "pending" while a commit runs and the booking reference once it
// finished.
type CommitLedger struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCommitLedger(rdb *redis.Client, ttl time.Duration) *CommitLedger {
	return &CommitLedger{rdb: rdb, ttl: ttl}
}

func commitKey(token string) string {
	return fmt.Sprintf("commit:%s", token)
}

func (l *CommitLedger) Lookup(ctx context.Context, token string) (string, bool, error) {
	val, err := l.rdb.Get(ctx, commitKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("ledger lookup: %w", err)
	}

	if val == pendingMarker {
		return "", false, nil
	}

	return val, true, nil
}

func (l *CommitLedger) Claim(ctx context.Context, token string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, commitKey(token), pendingMarker, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ledger claim: %w", err)
	}

	return ok, nil
}

func (l *CommitLedger) Complete(ctx context.Context, token, reference string) error {
	if err := l.rdb.Set(ctx, commitKey(token), reference, l.ttl).Err(); err != nil {
		return fmt.Errorf("ledger complete: %w", err)
	}

	return nil
}

func (l *CommitLedger) Release(ctx context.Context, token string) error {
	if err := l.rdb.Del(ctx, commitKey(token)).Err(); err != nil {
		return fmt.Errorf("ledger release: %w", err)
	}

	return nil
}
