package main

import (
	"context"
	"fmt"

	"github.com/lanrat/zonepush/plan"
	"github.com/lanrat/zonepush/status"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// api is the part of the hosting provider client used to replay a plan
type api interface {
	CreateDomain(ctx context.Context, label string) error
	CreateRecord(ctx context.Context, label string, rrtype uint16, data string) error
}

// push replays p against client. Every domain is created before the first
// record. Failed calls are logged and counted but do not stop the push.
func push(ctx context.Context, client api, p *plan.Plan, parallel int, tracker *status.Tracker, logger log.FieldLogger) error {
	total := len(p.Domains) + len(p.Records)
	tracker.AddTotal(uint32(total))

	tracker.SetPhase("domains")
	err := fanOut(ctx, parallel, len(p.Domains), func(ctx context.Context, i int) error {
		label := p.Domains[i]
		key := fmt.Sprintf("domain %s", label)
		logger.Debugf("pushing new domain: %s", label)
		tracker.Start(key)
		if err := client.CreateDomain(ctx, label); err != nil {
			return failed(ctx, tracker, logger, key, err)
		}
		tracker.Complete(key)
		return nil
	})
	if err != nil {
		return err
	}

	tracker.SetPhase("records")
	err = fanOut(ctx, parallel, len(p.Records), func(ctx context.Context, i int) error {
		r := p.Records[i]
		key := fmt.Sprintf("record #%d %s %s", i+1, r.Label, r.TypeString())
		logger.Debugf("pushing new record: %s %s %s", r.Label, r.TypeString(), r.Data)
		tracker.Start(key)
		if err := client.CreateRecord(ctx, r.Label, r.Type, r.Data); err != nil {
			return failed(ctx, tracker, logger, key, err)
		}
		tracker.Complete(key)
		return nil
	})
	if err != nil {
		return err
	}
	tracker.SetPhase("done")

	if n := tracker.Failed(); n > 0 {
		return fmt.Errorf("%d of %d API calls failed", n, total)
	}
	return nil
}

// failed records a failed call. Only cancellation stops the push.
func failed(ctx context.Context, tracker *status.Tracker, logger log.FieldLogger, key string, err error) error {
	tracker.Fail(key, err.Error())
	if ctx.Err() != nil {
		return ctx.Err()
	}
	logger.Warnf("%s: %v", key, err)
	return nil
}

// fanOut calls fn for 0..n-1 with at most parallel calls in flight.
func fanOut(ctx context.Context, parallel, n int, fn func(context.Context, int) error) error {
	if parallel < 1 {
		parallel = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
