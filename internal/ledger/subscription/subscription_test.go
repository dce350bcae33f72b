// internal/ledger/subscription/subscription_test.go
package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"subscription-ledger/internal/common/database"
	lederrors "subscription-ledger/internal/common/errors"
	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/ledger/callctx"
	"subscription-ledger/internal/ledger/events"
	"subscription-ledger/internal/ledger/index"
	"subscription-ledger/internal/ledger/plan"
	"subscription-ledger/internal/ledger/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupService(t *testing.T) (*Service, *plan.Service, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewTestLogger(t)
	kv := store.NewRedisStore(&database.RedisClient{Client: client})
	locks := store.NewKeyedMutex()
	emitter := events.NewLogEmitter(log)
	plans := plan.NewService(kv, index.NewManager(kv, locks, log), emitter, log)
	return NewService(kv, locks, plans, emitter, log), plans, mr
}

func payingCall(caller string, coins uint64) callctx.Call {
	return callctx.Call{Caller: caller, Coins: coins, Now: time.UnixMilli(1714089600000).UTC()}
}

// createPricedPlan writes a plan priced at 5 whole tokens, which means a
// subscriber must attach at least 5,000,000 minor units.
func createPricedPlan(t *testing.T, plans *plan.Service, planID string) {
	t.Helper()
	err := plans.Create(context.Background(), payingCall("0xcreator", 0), planID,
		"Premium", "All posts", "MAS", "5", "monthly", "1714089600000")
	require.NoError(t, err)
}

// ==========================
// Subscribe Tests
// ==========================

func TestService_Subscribe(t *testing.T) {
	svc, plans, _ := setupService(t)
	ctx := context.Background()
	createPricedPlan(t, plans, "p1")

	err := svc.Subscribe(ctx, payingCall("0xAlice", 5_000_000), "p1")
	require.NoError(t, err)

	subs, err := svc.Subscribers(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "0xalice", subs)

	userSubs, err := svc.UserSubscriptions(ctx, "0xalice")
	require.NoError(t, err)
	assert.Equal(t, "p1", userSubs)

	ts, err := svc.SubscriberTimestamp(ctx, "p1", "0xalice")
	require.NoError(t, err)
	assert.Equal(t, "1714089600000", ts)

	paused, err := svc.IsPaused(ctx, "p1", "0xalice")
	require.NoError(t, err)
	assert.Equal(t, "false", paused)
}

func TestService_Subscribe_UnknownPlan(t *testing.T) {
	svc, _, _ := setupService(t)

	err := svc.Subscribe(context.Background(), payingCall("0xalice", 5_000_000), "missing")
	assert.ErrorIs(t, err, lederrors.NewPlanNotFound("missing"))
}

func TestService_Subscribe_PaymentGate(t *testing.T) {
	svc, plans, mr := setupService(t)
	ctx := context.Background()
	createPricedPlan(t, plans, "p1")

	// Strictly less than amount * 1,000,000 is rejected.
	err := svc.Subscribe(ctx, payingCall("0xalice", 4_999_999), "p1")
	require.Error(t, err)
	assert.Equal(t, lederrors.CodeInsufficientPayment, lederrors.CodeOf(err))

	// A faulted subscribe leaves no trace.
	assert.False(t, mr.Exists("planSubscribers:p1"))
	assert.False(t, mr.Exists("userSubscriptions:0xalice"))
	assert.False(t, mr.Exists("planSubscriberDate:p1:0xalice"))

	// The exact amount succeeds, as does anything above it.
	require.NoError(t, svc.Subscribe(ctx, payingCall("0xalice", 5_000_000), "p1"))
	require.NoError(t, svc.Subscribe(ctx, payingCall("0xbob", 9_000_000), "p1"))

	subs, err := svc.Subscribers(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "0xalice|0xbob", subs)
}

func TestService_Subscribe_AlreadySubscribed(t *testing.T) {
	svc, plans, _ := setupService(t)
	ctx := context.Background()
	createPricedPlan(t, plans, "p1")

	require.NoError(t, svc.Subscribe(ctx, payingCall("0xalice", 5_000_000), "p1"))

	// A second subscribe faults even with payment attached, and even when
	// the caller address is cased differently.
	err := svc.Subscribe(ctx, payingCall("0xALICE", 5_000_000), "p1")
	require.Error(t, err)
	assert.Equal(t, lederrors.CodeAlreadySubscribed, lederrors.CodeOf(err))

	subs, err := svc.Subscribers(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "0xalice", subs)
}

// ==========================
// Pause Tests
// ==========================

func TestService_Pause(t *testing.T) {
	svc, plans, _ := setupService(t)
	ctx := context.Background()
	createPricedPlan(t, plans, "p1")
	require.NoError(t, svc.Subscribe(ctx, payingCall("0xalice", 5_000_000), "p1"))

	require.NoError(t, svc.Pause(ctx, payingCall("0xalice", 0), "p1"))

	paused, err := svc.IsPaused(ctx, "p1", "0xalice")
	require.NoError(t, err)
	assert.Equal(t, "true", paused)

	// Pausing does not touch membership.
	subs, err := svc.Subscribers(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "0xalice", subs)

	// Re-pausing an already paused membership succeeds.
	require.NoError(t, svc.Pause(ctx, payingCall("0xalice", 0), "p1"))
}

func TestService_Pause_NotSubscribed(t *testing.T) {
	svc, plans, _ := setupService(t)
	createPricedPlan(t, plans, "p1")

	err := svc.Pause(context.Background(), payingCall("0xalice", 0), "p1")
	require.Error(t, err)
	assert.Equal(t, lederrors.CodeNotSubscribed, lederrors.CodeOf(err))
}

func TestService_Pause_UnknownPlan(t *testing.T) {
	svc, _, _ := setupService(t)

	err := svc.Pause(context.Background(), payingCall("0xalice", 0), "missing")
	assert.Equal(t, lederrors.CodePlanNotFound, lederrors.CodeOf(err))
}

func TestService_Pause_RacingCancelLeavesNoOrphanFlag(t *testing.T) {
	svc, plans, mr := setupService(t)
	ctx := context.Background()
	createPricedPlan(t, plans, "p1")

	// Whichever order the lock serializes them into, the paused flag must
	// never outlive the membership: either pause runs first and cancel
	// clears the flag, or cancel runs first and pause faults.
	for i := 0; i < 50; i++ {
		require.NoError(t, svc.Subscribe(ctx, payingCall("0xalice", 5_000_000), "p1"))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = svc.Pause(ctx, payingCall("0xalice", 0), "p1")
		}()
		go func() {
			defer wg.Done()
			_ = svc.Cancel(ctx, payingCall("0xalice", 0), "p1")
		}()
		wg.Wait()

		subs, err := svc.Subscribers(ctx, "p1")
		require.NoError(t, err)
		require.Empty(t, subs)
		assert.False(t, mr.Exists("planSubscriberPaused:p1:0xalice"))
		assert.False(t, mr.Exists("planSubscriberDate:p1:0xalice"))

		// A fresh subscription is never born paused.
		require.NoError(t, svc.Subscribe(ctx, payingCall("0xalice", 5_000_000), "p1"))
		paused, err := svc.IsPaused(ctx, "p1", "0xalice")
		require.NoError(t, err)
		require.Equal(t, "false", paused)
		require.NoError(t, svc.Cancel(ctx, payingCall("0xalice", 0), "p1"))
	}
}

// ==========================
// Cancel Tests
// ==========================

func TestService_Cancel(t *testing.T) {
	svc, plans, mr := setupService(t)
	ctx := context.Background()
	createPricedPlan(t, plans, "p1")
	createPricedPlan(t, plans, "p2")

	require.NoError(t, svc.Subscribe(ctx, payingCall("0xalice", 5_000_000), "p1"))
	require.NoError(t, svc.Subscribe(ctx, payingCall("0xalice", 5_000_000), "p2"))
	require.NoError(t, svc.Subscribe(ctx, payingCall("0xbob", 5_000_000), "p1"))
	require.NoError(t, svc.Pause(ctx, payingCall("0xalice", 0), "p1"))

	require.NoError(t, svc.Cancel(ctx, payingCall("0xalice", 0), "p1"))

	// Removed from both sides; the other pairings survive.
	subs, err := svc.Subscribers(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "0xbob", subs)

	userSubs, err := svc.UserSubscriptions(ctx, "0xalice")
	require.NoError(t, err)
	assert.Equal(t, "p2", userSubs)

	// Annotation keys are cleared with the membership.
	assert.False(t, mr.Exists("planSubscriberDate:p1:0xalice"))
	assert.False(t, mr.Exists("planSubscriberPaused:p1:0xalice"))

	paused, err := svc.IsPaused(ctx, "p1", "0xalice")
	require.NoError(t, err)
	assert.Equal(t, "false", paused)
}

func TestService_Cancel_NotSubscribed(t *testing.T) {
	svc, plans, _ := setupService(t)
	createPricedPlan(t, plans, "p1")

	err := svc.Cancel(context.Background(), payingCall("0xalice", 0), "p1")
	require.Error(t, err)
	assert.Equal(t, lederrors.CodeNotSubscribed, lederrors.CodeOf(err))
}

func TestService_Cancel_ThenResubscribe(t *testing.T) {
	svc, plans, _ := setupService(t)
	ctx := context.Background()
	createPricedPlan(t, plans, "p1")

	require.NoError(t, svc.Subscribe(ctx, payingCall("0xalice", 5_000_000), "p1"))
	require.NoError(t, svc.Pause(ctx, payingCall("0xalice", 0), "p1"))
	require.NoError(t, svc.Cancel(ctx, payingCall("0xalice", 0), "p1"))

	// A fresh subscribe starts clean: payment is charged again and the
	// previous paused flag is gone.
	err := svc.Subscribe(ctx, payingCall("0xalice", 4_999_999), "p1")
	assert.Equal(t, lederrors.CodeInsufficientPayment, lederrors.CodeOf(err))

	require.NoError(t, svc.Subscribe(ctx, payingCall("0xalice", 5_000_000), "p1"))

	paused, err := svc.IsPaused(ctx, "p1", "0xalice")
	require.NoError(t, err)
	assert.Equal(t, "false", paused)
}

// ==========================
// Manage Dispatch Tests
// ==========================

func TestService_Manage(t *testing.T) {
	svc, plans, _ := setupService(t)
	ctx := context.Background()
	createPricedPlan(t, plans, "p1")

	require.NoError(t, svc.Manage(ctx, payingCall("0xalice", 5_000_000), ActionSubscribe, "p1"))
	require.NoError(t, svc.Manage(ctx, payingCall("0xalice", 0), ActionPause, "p1"))
	require.NoError(t, svc.Manage(ctx, payingCall("0xalice", 0), ActionCancel, "p1"))

	err := svc.Manage(ctx, payingCall("0xalice", 0), "resume", "p1")
	require.Error(t, err)
	assert.Equal(t, lederrors.CodeInvalidAction, lederrors.CodeOf(err))
}
