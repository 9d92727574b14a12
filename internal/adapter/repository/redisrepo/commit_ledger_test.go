package redisrepo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/repository/redisrepo"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ttl = 24 * time.Hour

func TestCommitLedger_ClaimCompleteLookup(t *testing.T) {
	ctx := context.Background()
	db, mockRedis := redismock.NewClientMock()
	ledger := redisrepo.NewCommitLedger(db, ttl)

	mockRedis.ExpectSetNX("commit:pay_1", "pending", ttl).SetVal(true)
	mockRedis.ExpectGet("commit:pay_1").SetVal("pending")
	mockRedis.ExpectSet("commit:pay_1", "RW-ABCDEFGH", ttl).SetVal("OK")
	mockRedis.ExpectGet("commit:pay_1").SetVal("RW-ABCDEFGH")

	ok, err := ledger.Claim(ctx, "pay_1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := ledger.Lookup(ctx, "pay_1")
	require.NoError(t, err)
	assert.False(t, found, "pending claims are not lookups")

	require.NoError(t, ledger.Complete(ctx, "pay_1", "RW-ABCDEFGH"))

	ref, found, err := ledger.Lookup(ctx, "pay_1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "RW-ABCDEFGH", ref)

	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestCommitLedger_SecondClaimLoses(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	ledger := redisrepo.NewCommitLedger(db, ttl)

	mockRedis.ExpectSetNX("commit:pay_1", "pending", ttl).SetVal(false)

	ok, err := ledger.Claim(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommitLedger_MissAndErrors(t *testing.T) {
	ctx := context.Background()
	db, mockRedis := redismock.NewClientMock()
	ledger := redisrepo.NewCommitLedger(db, ttl)

	mockRedis.ExpectGet("commit:pay_1").RedisNil()
	mockRedis.ExpectGet("commit:pay_2").SetErr(errors.New("timeout"))
	mockRedis.ExpectDel("commit:pay_3").SetVal(1)

	_, found, err := ledger.Lookup(ctx, "pay_1")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = ledger.Lookup(ctx, "pay_2")
	assert.Error(t, err)

	assert.NoError(t, ledger.Release(ctx, "pay_3"))
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}
