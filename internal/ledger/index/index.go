// Package index emulates ordered, append-only collections over the flat
// key/value store. A sequence is a counter key plus one key per slot;
// the counter is the sole source of truth for the iteration bound.
package index

import (
	"context"
	"errors"
	"strconv"

	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/ledger/store"
)

// Sequence names a per-owner counted sequence. Count and slot prefixes
// differ for historical reasons (contentCount vs creatorContent), so both
// are spelled out.
type Sequence struct {
	CountPrefix string
	SlotPrefix  string
}

// GlobalSequence names a sequence with a single process-wide counter.
type GlobalSequence struct {
	CountKey   string
	SlotPrefix string
}

// Well-known sequences. The key shapes are an externally observable
// contract and must not change.
var (
	CreatorPlans    = Sequence{CountPrefix: "creatorPlanCount", SlotPrefix: "creatorPlan"}
	CreatorContent  = Sequence{CountPrefix: "contentCount", SlotPrefix: "creatorContent"}
	CreatorRegistry = GlobalSequence{CountKey: "creatorCount", SlotPrefix: "creatorList"}
)

func (s Sequence) CountKey(owner string) string {
	return s.CountPrefix + ":" + owner
}

func (s Sequence) SlotKey(owner string, i int) string {
	return s.SlotPrefix + ":" + owner + ":" + strconv.Itoa(i)
}

func (g GlobalSequence) SlotKey(i int) string {
	return g.SlotPrefix + ":" + strconv.Itoa(i)
}

// Manager maintains counted sequences. Appends run under a per-counter
// lock so the read-increment-write triple stays atomic per owner.
type Manager struct {
	store store.Store
	locks *store.KeyedMutex
	log   logger.Logger
}

func NewManager(s store.Store, locks *store.KeyedMutex, log logger.Logger) *Manager {
	return &Manager{store: s, locks: locks, log: log}
}

// Append writes value to the owner's next slot and bumps the counter.
// Returns the slot index written.
func (m *Manager) Append(ctx context.Context, seq Sequence, owner, value string) (int, error) {
	return m.AppendWith(ctx, seq, owner, value, nil)
}

// AppendWith is Append with extra writes carried in the same batch, for
// callers that must land their own record and its index slot together.
func (m *Manager) AppendWith(ctx context.Context, seq Sequence, owner, value string, extra []store.KV) (int, error) {
	countKey := seq.CountKey(owner)
	unlock := m.locks.Lock(countKey)
	defer unlock()

	count, err := m.readCount(ctx, countKey)
	if err != nil {
		return 0, err
	}

	sets := append([]store.KV{
		{Key: seq.SlotKey(owner, count), Value: value},
		{Key: countKey, Value: strconv.Itoa(count + 1)},
	}, extra...)
	if err := m.store.Apply(ctx, sets, nil); err != nil {
		return 0, err
	}
	return count, nil
}

// Iterate yields slots 0..count-1 in order. A slot whose key is absent
// is skipped rather than treated as an error; no deletion path exists
// today, but the counter stays authoritative if one is ever added.
func (m *Manager) Iterate(ctx context.Context, seq Sequence, owner string) ([]string, error) {
	count, err := m.readCount(ctx, seq.CountKey(owner))
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, count)
	for i := 0; i < count; i++ {
		val, err := m.store.Get(ctx, seq.SlotKey(owner, i))
		if err != nil {
			if errors.Is(err, store.ErrKeyNotFound) {
				m.log.Debug("sequence slot missing, skipping", map[string]interface{}{
					"sequence": seq.SlotPrefix,
					"owner":    owner,
					"slot":     i,
				})
				continue
			}
			return nil, err
		}
		values = append(values, val)
	}
	return values, nil
}

// Count returns the owner's sequence length.
func (m *Manager) Count(ctx context.Context, seq Sequence, owner string) (int, error) {
	return m.readCount(ctx, seq.CountKey(owner))
}

// AppendGlobal appends to a sequence keyed by a single global counter.
// At-most-once insertion per logical owner is the caller's job; the
// caller must check its own existence guard before appending.
func (m *Manager) AppendGlobal(ctx context.Context, seq GlobalSequence, value string) (int, error) {
	return m.AppendGlobalWith(ctx, seq, value, nil)
}

// AppendGlobalWith is AppendGlobal with extra writes carried in the same
// batch.
func (m *Manager) AppendGlobalWith(ctx context.Context, seq GlobalSequence, value string, extra []store.KV) (int, error) {
	unlock := m.locks.Lock(seq.CountKey)
	defer unlock()

	count, err := m.readCount(ctx, seq.CountKey)
	if err != nil {
		return 0, err
	}

	sets := append([]store.KV{
		{Key: seq.SlotKey(count), Value: value},
		{Key: seq.CountKey, Value: strconv.Itoa(count + 1)},
	}, extra...)
	if err := m.store.Apply(ctx, sets, nil); err != nil {
		return 0, err
	}
	return count, nil
}

// GlobalCount returns the length of a global sequence.
func (m *Manager) GlobalCount(ctx context.Context, seq GlobalSequence) (int, error) {
	return m.readCount(ctx, seq.CountKey)
}

// GlobalAt returns the value at slot i of a global sequence, or empty
// when the slot is absent.
func (m *Manager) GlobalAt(ctx context.Context, seq GlobalSequence, i int) (string, error) {
	val, err := m.store.Get(ctx, seq.SlotKey(i))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

func (m *Manager) readCount(ctx context.Context, countKey string) (int, error) {
	val, err := m.store.Get(ctx, countKey)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		// A corrupt counter makes the sequence unreadable; treat it as
		// empty rather than failing every caller.
		m.log.Warn("corrupt sequence counter", map[string]interface{}{
			"key":   countKey,
			"value": val,
		})
		return 0, nil
	}
	return count, nil
}
