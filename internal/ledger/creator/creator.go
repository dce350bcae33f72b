// Package creator stores per-creator profile pointers and the published
// content index, plus the global creator registry. Profile values are
// opaque content identifiers resolved off-chain; the ledger never
// inspects them.
package creator

import (
	"context"
	"errors"
	"strconv"
	"strings"

	lederrors "subscription-ledger/internal/common/errors"
	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/ledger/callctx"
	"subscription-ledger/internal/ledger/events"
	"subscription-ledger/internal/ledger/index"
	"subscription-ledger/internal/ledger/store"
)

const profilePrefix = "creatorProfile:"

func profileKey(creator string) string {
	return profilePrefix + creator
}

type Service struct {
	store   store.Store
	index   *index.Manager
	locks   *store.KeyedMutex
	emitter events.Emitter
	log     logger.Logger
}

func NewService(s store.Store, idx *index.Manager, locks *store.KeyedMutex, emitter events.Emitter, log logger.Logger) *Service {
	return &Service{
		store:   s,
		index:   idx,
		locks:   locks,
		emitter: emitter,
		log:     log.WithFields(map[string]interface{}{"component": "creator"}),
	}
}

// SetProfile overwrites the caller's profile pointer. The first set by a
// given creator also registers them in the global creator registry;
// whether this is the first set is decided by the profile key's
// existence before the write, under the creator's lock so two first
// writes cannot both register.
func (s *Service) SetProfile(ctx context.Context, call callctx.Call, cid string) error {
	creator := call.CallerLower()
	key := profileKey(creator)

	unlock := s.locks.Lock(key)
	defer unlock()

	existed, err := s.store.Has(ctx, key)
	if err != nil {
		return err
	}

	if existed {
		if err := s.store.Set(ctx, key, cid); err != nil {
			return err
		}
		s.emit(ctx, events.Event{
			Type:    events.TypeProfileUpdated,
			Creator: creator,
		})
		return nil
	}

	// First set: profile, registry slot and counter land in one batch,
	// so a failed call cannot strand a profile outside the registry.
	extra := []store.KV{{Key: key, Value: cid}}
	if _, err := s.index.AppendGlobalWith(ctx, index.CreatorRegistry, creator, extra); err != nil {
		return err
	}

	s.emit(ctx, events.Event{
		Type:    events.TypeProfileCreated,
		Creator: creator,
	})
	return nil
}

// Profile returns the stored profile CID, empty when absent.
func (s *Service) Profile(ctx context.Context, creator string) (string, error) {
	val, err := s.store.Get(ctx, profileKey(strings.ToLower(creator)))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

// Count returns the number of registered creators.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.index.GlobalCount(ctx, index.CreatorRegistry)
}

// ByIndex returns the creator address at a registry slot, empty when the
// slot is absent. The index arrives as a string on the wire.
func (s *Service) ByIndex(ctx context.Context, indexStr string) (string, error) {
	i, err := strconv.Atoi(strings.TrimSpace(indexStr))
	if err != nil || i < 0 {
		return "", lederrors.NewInvalidArgument("index", indexStr)
	}
	return s.index.GlobalAt(ctx, index.CreatorRegistry, i)
}

// AddContent appends a content CID to the caller's content index.
func (s *Service) AddContent(ctx context.Context, call callctx.Call, cid string) error {
	creator := call.CallerLower()

	if _, err := s.index.Append(ctx, index.CreatorContent, creator, cid); err != nil {
		return err
	}

	s.emit(ctx, events.Event{
		Type:       events.TypeContentAdded,
		Creator:    creator,
		ContentCID: cid,
	})
	return nil
}

// Contents returns the creator's content CIDs joined with semicolons, in
// publication order.
func (s *Service) Contents(ctx context.Context, creator string) (string, error) {
	cids, err := s.index.Iterate(ctx, index.CreatorContent, strings.ToLower(creator))
	if err != nil {
		return "", err
	}
	return strings.Join(cids, ";"), nil
}

// ContentCount returns the creator's content count as a string, "0" when
// the creator has never published.
func (s *Service) ContentCount(ctx context.Context, creator string) (string, error) {
	count, err := s.index.Count(ctx, index.CreatorContent, strings.ToLower(creator))
	if err != nil {
		return "", err
	}
	return strconv.Itoa(count), nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.log.Warn("event emission failed", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}
