// Package subscription drives the (plan, subscriber) lifecycle:
// subscribe, pause, cancel. Membership lives in two mirrored delimited
// lists, one per plan and one per subscriber; the paused flag and join
// timestamp are orthogonal annotation keys that exist only while the
// relationship does. Only subscribe and cancel ever touch the membership
// lists, which keeps the bidirectional invariant easy to hold.
package subscription

import (
	"context"
	"errors"
	"strings"

	lederrors "subscription-ledger/internal/common/errors"
	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/ledger/callctx"
	"subscription-ledger/internal/ledger/codec"
	"subscription-ledger/internal/ledger/events"
	"subscription-ledger/internal/ledger/plan"
	"subscription-ledger/internal/ledger/store"
)

// Actions accepted by Manage.
const (
	ActionSubscribe = "subscribe"
	ActionPause     = "pause"
	ActionCancel    = "cancel"
)

func subscribersKey(planID string) string {
	return "planSubscribers:" + planID
}

func userSubscriptionsKey(subscriber string) string {
	return "userSubscriptions:" + subscriber
}

func dateKey(planID, subscriber string) string {
	return "planSubscriberDate:" + planID + ":" + subscriber
}

func pausedKey(planID, subscriber string) string {
	return "planSubscriberPaused:" + planID + ":" + subscriber
}

type Service struct {
	store   store.Store
	locks   *store.KeyedMutex
	plans   *plan.Service
	emitter events.Emitter
	log     logger.Logger
}

func NewService(s store.Store, locks *store.KeyedMutex, plans *plan.Service, emitter events.Emitter, log logger.Logger) *Service {
	return &Service{
		store:   s,
		locks:   locks,
		plans:   plans,
		emitter: emitter,
		log:     log.WithFields(map[string]interface{}{"component": "subscription"}),
	}
}

// Manage dispatches a lifecycle action for the calling subscriber.
func (s *Service) Manage(ctx context.Context, call callctx.Call, action, planID string) error {
	switch action {
	case ActionSubscribe:
		return s.Subscribe(ctx, call, planID)
	case ActionPause:
		return s.Pause(ctx, call, planID)
	case ActionCancel:
		return s.Cancel(ctx, call, planID)
	default:
		return lederrors.NewInvalidAction(action)
	}
}

// Subscribe adds the caller to the plan. The attached payment must cover
// the plan amount scaled to minor units; all checks run before the first
// write, so a faulted call persists nothing.
func (s *Service) Subscribe(ctx context.Context, call callctx.Call, planID string) error {
	subscriber := call.CallerLower()

	// Membership rewrites on both lists run under the plan lock, then
	// the subscriber lock. Every mutation takes them in this order.
	unlockPlan := s.locks.Lock(subscribersKey(planID))
	defer unlockPlan()
	unlockUser := s.locks.Lock(userSubscriptionsKey(subscriber))
	defer unlockUser()

	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return err
	}
	if p == nil {
		return lederrors.NewPlanNotFound(planID)
	}

	planList, err := s.readList(ctx, subscribersKey(planID))
	if err != nil {
		return err
	}
	if contains(planList, subscriber) {
		return lederrors.NewAlreadySubscribed(planID, subscriber)
	}

	required, err := MinorUnits(p.Amount)
	if err != nil {
		return lederrors.NewInvalidArgument("amount", err.Error())
	}
	if call.Coins < required {
		return lederrors.NewInsufficientPayment(required, call.Coins)
	}

	userList, err := s.readList(ctx, userSubscriptionsKey(subscriber))
	if err != nil {
		return err
	}

	sets := []store.KV{
		{Key: subscribersKey(planID), Value: joinList(append(planList, subscriber))},
		{Key: userSubscriptionsKey(subscriber), Value: joinList(append(userList, planID))},
		{Key: dateKey(planID, subscriber), Value: call.TimestampString()},
	}
	if err := s.store.Apply(ctx, sets, nil); err != nil {
		return err
	}

	s.emit(ctx, events.Event{
		Type:       events.TypeSubscribed,
		PlanID:     planID,
		Subscriber: subscriber,
	})
	return nil
}

// Pause marks an existing membership paused. Re-pausing an already
// paused subscriber succeeds; the flag is an annotation, not a separate
// membership state.
func (s *Service) Pause(ctx context.Context, call callctx.Call, planID string) error {
	subscriber := call.CallerLower()

	// The membership read and the flag write must not straddle a
	// concurrent cancel, or the flag outlives the membership. Same lock
	// order as Subscribe and Cancel.
	unlockPlan := s.locks.Lock(subscribersKey(planID))
	defer unlockPlan()
	unlockUser := s.locks.Lock(userSubscriptionsKey(subscriber))
	defer unlockUser()

	exists, err := s.plans.Exists(ctx, planID)
	if err != nil {
		return err
	}
	if !exists {
		return lederrors.NewPlanNotFound(planID)
	}

	planList, err := s.readList(ctx, subscribersKey(planID))
	if err != nil {
		return err
	}
	if !contains(planList, subscriber) {
		return lederrors.NewNotSubscribed(planID, subscriber)
	}

	if err := s.store.Set(ctx, pausedKey(planID, subscriber), "true"); err != nil {
		return err
	}

	s.emit(ctx, events.Event{
		Type:       events.TypePaused,
		PlanID:     planID,
		Subscriber: subscriber,
	})
	return nil
}

// Cancel removes the membership entirely: both list entries plus the
// paused and timestamp annotations. The pair may re-subscribe later,
// which restarts payment and timestamp from scratch.
func (s *Service) Cancel(ctx context.Context, call callctx.Call, planID string) error {
	subscriber := call.CallerLower()

	unlockPlan := s.locks.Lock(subscribersKey(planID))
	defer unlockPlan()
	unlockUser := s.locks.Lock(userSubscriptionsKey(subscriber))
	defer unlockUser()

	exists, err := s.plans.Exists(ctx, planID)
	if err != nil {
		return err
	}
	if !exists {
		return lederrors.NewPlanNotFound(planID)
	}

	planList, err := s.readList(ctx, subscribersKey(planID))
	if err != nil {
		return err
	}
	if !contains(planList, subscriber) {
		return lederrors.NewNotSubscribed(planID, subscriber)
	}

	userList, err := s.readList(ctx, userSubscriptionsKey(subscriber))
	if err != nil {
		return err
	}

	sets := []store.KV{
		{Key: subscribersKey(planID), Value: joinList(remove(planList, subscriber))},
		{Key: userSubscriptionsKey(subscriber), Value: joinList(remove(userList, planID))},
	}
	dels := []string{
		dateKey(planID, subscriber),
		pausedKey(planID, subscriber),
	}
	if err := s.store.Apply(ctx, sets, dels); err != nil {
		return err
	}

	s.emit(ctx, events.Event{
		Type:       events.TypeCanceled,
		PlanID:     planID,
		Subscriber: subscriber,
	})
	return nil
}

// Subscribers returns the plan's raw subscriber list, empty when absent.
func (s *Service) Subscribers(ctx context.Context, planID string) (string, error) {
	return s.readRaw(ctx, subscribersKey(planID))
}

// UserSubscriptions returns the subscriber's raw plan list.
func (s *Service) UserSubscriptions(ctx context.Context, subscriber string) (string, error) {
	return s.readRaw(ctx, userSubscriptionsKey(strings.ToLower(subscriber)))
}

// IsPaused returns the stored paused flag, defaulting to "false".
func (s *Service) IsPaused(ctx context.Context, planID, subscriber string) (string, error) {
	val, err := s.store.Get(ctx, pausedKey(planID, strings.ToLower(subscriber)))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return "false", nil
		}
		return "", err
	}
	return val, nil
}

// SubscriberTimestamp returns the join timestamp, empty when absent.
func (s *Service) SubscriberTimestamp(ctx context.Context, planID, subscriber string) (string, error) {
	return s.readRaw(ctx, dateKey(planID, strings.ToLower(subscriber)))
}

func (s *Service) readRaw(ctx context.Context, key string) (string, error) {
	val, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

// readList loads a delimited membership list. An absent key and an empty
// value both read as the empty list.
func (s *Service) readList(ctx context.Context, key string) ([]string, error) {
	raw, err := s.readRaw(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	return strings.Split(raw, codec.FieldDelimiter), nil
}

func joinList(items []string) string {
	return strings.Join(items, codec.FieldDelimiter)
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func remove(items []string, target string) []string {
	out := items[:0]
	for _, item := range items {
		if item != target {
			out = append(out, item)
		}
	}
	return out
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.log.Warn("event emission failed", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}
