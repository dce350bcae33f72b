// internal/gateway/operations.go
package gateway

import (
	"context"
	"errors"
	"strconv"

	lederrors "subscription-ledger/internal/common/errors"
	"subscription-ledger/internal/ledger/callctx"
	"subscription-ledger/internal/ledger/codec"
	"subscription-ledger/internal/ledger/creator"
	"subscription-ledger/internal/ledger/plan"
	"subscription-ledger/internal/ledger/subscription"
)

// Services bundles the ledger services the gateway exposes.
type Services struct {
	Plans         *plan.Service
	Subscriptions *subscription.Service
	Creators      *creator.Service
}

// RegisterOperations binds every ledger operation to the dispatcher.
// Argument order follows the original wire contract.
func RegisterOperations(d *Dispatcher, svc Services) {
	d.Register("createPlan", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		if err := requireCaller(call); err != nil {
			return nil, err
		}
		planID, err := nextString(args, "planId")
		if err != nil {
			return nil, err
		}
		name, err := nextString(args, "planName")
		if err != nil {
			return nil, err
		}
		description, err := nextString(args, "description")
		if err != nil {
			return nil, err
		}
		token, err := nextString(args, "token")
		if err != nil {
			return nil, err
		}
		amount, err := nextString(args, "amount")
		if err != nil {
			return nil, err
		}
		frequency, err := nextString(args, "frequency")
		if err != nil {
			return nil, err
		}
		createdAt, err := nextString(args, "createdAt")
		if err != nil {
			return nil, err
		}
		return nil, svc.Plans.Create(ctx, call, planID, name, description, token, amount, frequency, createdAt)
	})

	d.Register("getPlansByCreator", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		creatorAddr, err := nextString(args, "creator")
		if err != nil {
			return nil, err
		}
		summaries, err := svc.Plans.GetByCreator(ctx, creatorAddr)
		if err != nil {
			return nil, err
		}
		out := codec.NewArgsWriter()
		for _, s := range summaries {
			out.AddString(s.ID).
				AddString(s.Name).
				AddString(s.Frequency).
				AddU32(0). // reserved slot kept for wire compatibility
				AddString(s.Amount)
		}
		return out.Serialize(), nil
	})

	d.Register("getPlanById", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		planID, err := nextString(args, "planId")
		if err != nil {
			return nil, err
		}
		p, err := svc.Plans.GetByID(ctx, planID)
		if err != nil || p == nil {
			return nil, err
		}
		out := codec.NewArgsWriter().
			AddString(p.Name).
			AddString(p.Description).
			AddString(p.Token).
			AddString(p.Amount).
			AddString(p.Frequency).
			AddString(p.Creator).
			AddString(p.CreatedAt)
		return out.Serialize(), nil
	})

	d.Register("manageSubscription", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		if err := requireCaller(call); err != nil {
			return nil, err
		}
		action, err := nextString(args, "action")
		if err != nil {
			return nil, err
		}
		planID, err := nextString(args, "planId")
		if err != nil {
			return nil, err
		}
		return nil, svc.Subscriptions.Manage(ctx, call, action, planID)
	})

	d.Register("getSubscribers", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		planID, err := nextString(args, "planId")
		if err != nil {
			return nil, err
		}
		return rawResult(svc.Subscriptions.Subscribers(ctx, planID))
	})

	d.Register("getUserSubscriptions", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		addr, err := nextString(args, "address")
		if err != nil {
			return nil, err
		}
		return rawResult(svc.Subscriptions.UserSubscriptions(ctx, addr))
	})

	d.Register("getPlan", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		planID, err := nextString(args, "planId")
		if err != nil {
			return nil, err
		}
		return rawResult(svc.Plans.GetRaw(ctx, planID))
	})

	d.Register("isPaused", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		planID, err := nextString(args, "planId")
		if err != nil {
			return nil, err
		}
		addr, err := nextString(args, "address")
		if err != nil {
			return nil, err
		}
		return rawResult(svc.Subscriptions.IsPaused(ctx, planID, addr))
	})

	d.Register("getSubscriberTimestamp", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		planID, err := nextString(args, "planId")
		if err != nil {
			return nil, err
		}
		addr, err := nextString(args, "address")
		if err != nil {
			return nil, err
		}
		return rawResult(svc.Subscriptions.SubscriberTimestamp(ctx, planID, addr))
	})

	d.Register("setCreatorProfile", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		if err := requireCaller(call); err != nil {
			return nil, err
		}
		cid, err := nextString(args, "profileCid")
		if err != nil {
			return nil, err
		}
		return nil, svc.Creators.SetProfile(ctx, call, cid)
	})

	d.Register("getCreatorProfile", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		addr, err := nextString(args, "address")
		if err != nil {
			return nil, err
		}
		return rawResult(svc.Creators.Profile(ctx, addr))
	})

	d.Register("getCreatorCount", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		count, err := svc.Creators.Count(ctx)
		if err != nil {
			return nil, err
		}
		return []byte(strconv.Itoa(count)), nil
	})

	d.Register("getCreatorByIndex", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		indexStr, err := nextString(args, "index")
		if err != nil {
			return nil, err
		}
		return rawResult(svc.Creators.ByIndex(ctx, indexStr))
	})

	d.Register("addCreatorContent", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		if err := requireCaller(call); err != nil {
			return nil, err
		}
		cid, err := nextString(args, "contentCid")
		if err != nil {
			return nil, err
		}
		return nil, svc.Creators.AddContent(ctx, call, cid)
	})

	d.Register("getCreatorContents", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		addr, err := nextString(args, "address")
		if err != nil {
			return nil, err
		}
		return rawResult(svc.Creators.Contents(ctx, addr))
	})

	d.Register("getCreatorContentCount", func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error) {
		addr, err := nextString(args, "address")
		if err != nil {
			return nil, err
		}
		return rawResult(svc.Creators.ContentCount(ctx, addr))
	})
}

func nextString(args *codec.Args, name string) (string, error) {
	s, err := args.NextString()
	if err != nil {
		if errors.Is(err, codec.ErrEndOfArgs) {
			return "", lederrors.NewMissingArgument(name)
		}
		return "", err
	}
	return s, nil
}

func requireCaller(call callctx.Call) error {
	if call.Caller == "" {
		return lederrors.NewMissingArgument("callerAddress")
	}
	return nil
}

func rawResult(s string, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
