// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"subscription-ledger/internal/common/config"
	"subscription-ledger/internal/common/database"
	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/gateway"
	"subscription-ledger/internal/ledger/callctx"
	"subscription-ledger/internal/ledger/codec"
	"subscription-ledger/internal/ledger/creator"
	"subscription-ledger/internal/ledger/events"
	"subscription-ledger/internal/ledger/index"
	"subscription-ledger/internal/ledger/plan"
	"subscription-ledger/internal/ledger/store"
	"subscription-ledger/internal/ledger/subscription"
	"subscription-ledger/pkg/registry"
)

var zapLog *zap.Logger

func TestMain(m *testing.M) {
	zapLog, _ = zap.NewDevelopment()
	code := m.Run()
	zapLog.Sync()
	os.Exit(code)
}

// newStack wires the full ledger stack the way cmd/ledger-server does.
// REDIS_ADDR points the suite at a live Redis; without it an embedded
// one is used so the suite stays self-contained.
func newStack(t *testing.T) (*gateway.Server, *redis.Client) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		addr = mr.Addr()
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	rdb := &database.RedisClient{Client: client}
	require.NoError(t, rdb.Ping(context.Background()), "redis ping failed")

	log := logger.NewZapAdapter(zapLog)
	kv := store.NewRedisStore(rdb)
	locks := store.NewKeyedMutex()
	idx := index.NewManager(kv, locks, log)
	emitter := events.NewLogEmitter(log)

	plans := plan.NewService(kv, idx, emitter, log)
	subs := subscription.NewService(kv, locks, plans, emitter, log)
	creators := creator.NewService(kv, idx, locks, emitter, log)

	dispatcher := gateway.NewDispatcher(log)
	gateway.RegisterOperations(dispatcher, gateway.Services{
		Plans:         plans,
		Subscriptions: subs,
		Creators:      creators,
	})

	srv := gateway.NewServer(config.ServerConfig{
		Address:        ":0",
		ReadTimeout:    5000,
		WriteTimeout:   5000,
		MaxRequestBody: 1 << 20,
	}, dispatcher, rdb, log)

	if reg, err := registry.LoadRegistry("../../configs/operations.json"); err == nil {
		srv.WithCatalog(reg)
	}
	return srv, client
}

func post(t *testing.T, srv *gateway.Server, operation, caller string, coins uint64, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/call/"+operation, bytes.NewReader(body))
	if caller != "" {
		req.Header.Set("X-Caller-Address", caller)
	}
	if coins > 0 {
		req.Header.Set("X-Attached-Coins", fmt.Sprintf("%d", coins))
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func oneString(s string) []byte {
	return codec.NewArgsWriter().AddString(s).Serialize()
}

// TestFullJourney drives the complete creator and subscriber lifecycle
// through the HTTP surface: profile, plans, content, subscription state
// machine, and the read paths a front end relies on.
func TestFullJourney(t *testing.T) {
	srv, _ := newStack(t)
	run := fmt.Sprintf("%d", time.Now().UnixNano())
	creatorAddr := "0xCreator" + run
	aliceAddr := "0xAlice" + run
	planID := "plan-" + run

	t.Log("🚀 Starting full ledger journey...")

	// 1. Creator registers a profile and is counted once.
	rec := post(t, srv, "setCreatorProfile", creatorAddr, 0, oneString("QmProfileV1"))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = post(t, srv, "setCreatorProfile", creatorAddr, 0, oneString("QmProfileV2"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, srv, "getCreatorProfile", "", 0, oneString(creatorAddr))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QmProfileV2", rec.Body.String())

	// The registry is global, so against a shared Redis the count only
	// moves forward.
	rec = post(t, srv, "getCreatorCount", "", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	count, err := strconv.Atoi(rec.Body.String())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)

	// 2. Creator publishes a plan and two content pieces.
	rec = post(t, srv, "createPlan", creatorAddr, 0, codec.NewArgsWriter().
		AddString(planID).
		AddString("Premium").
		AddString("Every post, every week").
		AddString("MAS").
		AddString("2.5").
		AddString("monthly").
		AddString("1714089600000").
		Serialize())
	require.Equal(t, http.StatusOK, rec.Code)

	for _, cid := range []string{"QmPost1", "QmPost2"} {
		rec = post(t, srv, "addCreatorContent", creatorAddr, 0, oneString(cid))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec = post(t, srv, "getCreatorContents", "", 0, oneString(creatorAddr))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QmPost1;QmPost2", rec.Body.String())

	rec = post(t, srv, "getCreatorContentCount", "", 0, oneString(creatorAddr))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Body.String())

	// 3. Subscriber pays for the plan: 2.5 tokens is 2,500,000 minor units.
	manage := func(action string) []byte {
		return codec.NewArgsWriter().AddString(action).AddString(planID).Serialize()
	}

	rec = post(t, srv, "manageSubscription", aliceAddr, 2_499_999, manage("subscribe"))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code, "underpayment must fault")

	rec = post(t, srv, "manageSubscription", aliceAddr, 2_500_000, manage("subscribe"))
	require.Equal(t, http.StatusOK, rec.Code)

	// 4. Pause, verify the flag, cancel, verify everything is gone.
	rec = post(t, srv, "manageSubscription", aliceAddr, 0, manage("pause"))
	require.Equal(t, http.StatusOK, rec.Code)

	pauseQuery := codec.NewArgsWriter().AddString(planID).AddString(aliceAddr).Serialize()
	rec = post(t, srv, "isPaused", "", 0, pauseQuery)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Body.String())

	rec = post(t, srv, "getSubscriberTimestamp", "", 0, pauseQuery)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())

	rec = post(t, srv, "manageSubscription", aliceAddr, 0, manage("cancel"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, srv, "getSubscribers", "", 0, oneString(planID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = post(t, srv, "isPaused", "", 0, pauseQuery)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false", rec.Body.String())

	// 5. Service endpoints.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	hrec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(hrec, req)
	assert.Equal(t, http.StatusOK, hrec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/operations", nil)
	hrec = httptest.NewRecorder()
	srv.Engine().ServeHTTP(hrec, req)
	assert.Equal(t, http.StatusOK, hrec.Code)

	t.Log("✅ Full journey complete")
}

// ==========================
// Benchmark Tests
// ==========================

func benchStack(b *testing.B) (*gateway.Dispatcher, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		b.Fatal(err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	log := logger.NewZapAdapter(zap.NewNop())
	kv := store.NewRedisStore(&database.RedisClient{Client: client})
	locks := store.NewKeyedMutex()
	idx := index.NewManager(kv, locks, log)
	emitter := events.NewLogEmitter(log)

	plans := plan.NewService(kv, idx, emitter, log)
	subs := subscription.NewService(kv, locks, plans, emitter, log)
	creators := creator.NewService(kv, idx, locks, emitter, log)

	dispatcher := gateway.NewDispatcher(log)
	gateway.RegisterOperations(dispatcher, gateway.Services{
		Plans:         plans,
		Subscriptions: subs,
		Creators:      creators,
	})
	return dispatcher, func() {
		client.Close()
		mr.Close()
	}
}

func BenchmarkDispatch_CreatePlan(b *testing.B) {
	dispatcher, cleanup := benchStack(b)
	defer cleanup()
	call := callctx.Call{Caller: "0xbench", Now: time.Now()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf := codec.NewArgsWriter().
			AddString(fmt.Sprintf("plan-%d", i)).
			AddString("Bench").
			AddString("Benchmark plan").
			AddString("MAS").
			AddString("1").
			AddString("monthly").
			AddString("1714089600000").
			Serialize()
		if _, err := dispatcher.Dispatch(context.Background(), "createPlan", call, buf); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDispatch_GetPlanById(b *testing.B) {
	dispatcher, cleanup := benchStack(b)
	defer cleanup()
	call := callctx.Call{Caller: "0xbench", Now: time.Now()}

	buf := codec.NewArgsWriter().
		AddString("plan-0").
		AddString("Bench").
		AddString("Benchmark plan").
		AddString("MAS").
		AddString("1").
		AddString("monthly").
		AddString("1714089600000").
		Serialize()
	if _, err := dispatcher.Dispatch(context.Background(), "createPlan", call, buf); err != nil {
		b.Fatal(err)
	}

	query := codec.NewArgsWriter().AddString("plan-0").Serialize()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dispatcher.Dispatch(context.Background(), "getPlanById", callctx.Call{}, query); err != nil {
			b.Fatal(err)
		}
	}
}
