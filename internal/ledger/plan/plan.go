// Package plan stores subscription plans and maintains the per-creator
// plan index. Plans are write-once in practice: no update or delete
// operation exists, and a re-used plan id silently overwrites.
package plan

import (
	"context"
	"errors"
	"strings"

	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/ledger/callctx"
	"subscription-ledger/internal/ledger/codec"
	"subscription-ledger/internal/ledger/events"
	"subscription-ledger/internal/ledger/index"
	"subscription-ledger/internal/ledger/store"
)

const keyPrefix = "plan:"

// Key returns the storage key for a plan record.
func Key(planID string) string {
	return keyPrefix + planID
}

// Plan is a decoded plan record.
type Plan struct {
	ID          string
	Name        string
	Description string
	Token       string
	Amount      string
	Frequency   string
	Creator     string
	CreatedAt   string
}

// Summary is the per-plan tuple returned by creator listings.
type Summary struct {
	ID        string
	Name      string
	Frequency string
	Amount    string
}

type Service struct {
	store   store.Store
	index   *index.Manager
	emitter events.Emitter
	log     logger.Logger
}

func NewService(s store.Store, idx *index.Manager, emitter events.Emitter, log logger.Logger) *Service {
	return &Service{
		store:   s,
		index:   idx,
		emitter: emitter,
		log:     log.WithFields(map[string]interface{}{"component": "plan"}),
	}
}

// Create writes the plan record and appends the plan id to the caller's
// index. The caller supplies the plan id; no uniqueness check is made,
// so a repeated id overwrites the record and appends a duplicate index
// slot. That matches the observed source behavior and stands until
// upsert-vs-fault intent is settled.
func (s *Service) Create(ctx context.Context, call callctx.Call, planID, name, description, token, amount, frequency, createdAt string) error {
	creator := call.CallerLower()

	// Record and index slot land in one batch; a failed call leaves
	// neither a dangling record nor a dangling slot.
	record := codec.EncodeFields(name, description, token, amount, frequency, creator, createdAt)
	extra := []store.KV{{Key: Key(planID), Value: record}}
	if _, err := s.index.AppendWith(ctx, index.CreatorPlans, creator, planID, extra); err != nil {
		return err
	}

	if err := s.emitter.Emit(ctx, events.Event{
		Type:    events.TypePlanCreated,
		PlanID:  planID,
		Creator: creator,
	}); err != nil {
		s.log.Warn("event emission failed", map[string]interface{}{
			"type":   events.TypePlanCreated,
			"planId": planID,
			"error":  err.Error(),
		})
	}
	return nil
}

// GetByID returns the decoded plan, or nil when the key is absent or the
// stored value does not decode into the full field set.
func (s *Service) GetByID(ctx context.Context, planID string) (*Plan, error) {
	raw, err := s.GetRaw(ctx, planID)
	if err != nil || raw == "" {
		return nil, err
	}

	parts, err := codec.DecodeFields(raw, codec.PlanArity)
	if err != nil {
		// Malformed records read as not found.
		return nil, nil
	}

	return &Plan{
		ID:          planID,
		Name:        parts[0],
		Description: parts[1],
		Token:       parts[2],
		Amount:      parts[3],
		Frequency:   parts[4],
		Creator:     parts[5],
		CreatedAt:   parts[6],
	}, nil
}

// GetRaw returns the stored record string, or empty when absent.
func (s *Service) GetRaw(ctx context.Context, planID string) (string, error) {
	raw, err := s.store.Get(ctx, Key(planID))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return raw, nil
}

// Exists reports whether a plan record is present.
func (s *Service) Exists(ctx context.Context, planID string) (bool, error) {
	return s.store.Has(ctx, Key(planID))
}

// GetByCreator resolves the creator's plan index in slot order. Ids whose
// record is missing or malformed are skipped. The creator address is
// normalized the same way Create normalizes it.
func (s *Service) GetByCreator(ctx context.Context, creator string) ([]Summary, error) {
	ids, err := s.index.Iterate(ctx, index.CreatorPlans, strings.ToLower(creator))
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			s.log.Debug("skipping unresolvable plan id", map[string]interface{}{
				"planId":  id,
				"creator": creator,
			})
			continue
		}
		summaries = append(summaries, Summary{
			ID:        p.ID,
			Name:      p.Name,
			Frequency: p.Frequency,
			Amount:    p.Amount,
		})
	}
	return summaries, nil
}
