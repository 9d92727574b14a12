package ports

import "context"

// CommitLedger is a fast idempotency guard keyed by payment confirmation
// token. It sits in front of the repository's unique constraint.
type CommitLedger interface {
	Lookup(ctx context.Context, token string) (reference string, found bool, err error)
	Claim(ctx context.Context, token string) (bool, error)
	Complete(ctx context.Context, token, reference string) error
	Release(ctx context.Context, token string) error
}
