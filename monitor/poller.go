package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chargemind/client"
	"chargemind/notify"
)

const defaultConcurrency = 4

type Clients interface {
	ListShopifyMonitored(ctx context.Context) ([]client.Monitored, error)
	UpdateDisputeCount(ctx context.Context, clientID string, count int) error
}

type DisputeCounter interface {
	CountDisputes(ctx context.Context, shop, token string) (int, error)
}

type Alerter interface {
	SendDisputeAlert(ctx context.Context, to string, a notify.DisputeAlert) error
}

// Summary reports one polling pass.
type Summary struct {
	Checked   int
	Increased int
	Failed    int
	Duration  time.Duration
}

// Poller compares each monitored shop's Shopify dispute count with the stored
// count and alerts when it grows.
type Poller struct {
	clients     Clients
	counter     DisputeCounter
	alerts      Alerter
	alertEmail  string
	concurrency int
	log         *zap.Logger
	now         func() time.Time
}

func NewPoller(clients Clients, counter DisputeCounter, alerts Alerter, alertEmail string, concurrency int, log *zap.Logger) *Poller {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		clients:     clients,
		counter:     counter,
		alerts:      alerts,
		alertEmail:  alertEmail,
		concurrency: concurrency,
		log:         log,
		now:         time.Now,
	}
}

// Run polls every monitored client once. A failing client is logged and
// skipped; only failing to list clients aborts the pass.
func (p *Poller) Run(ctx context.Context) (Summary, error) {
	start := p.now()
	monitored, err := p.clients.ListShopifyMonitored(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("monitor: list clients: %w", err)
	}

	var (
		mu  sync.Mutex
		sum Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, m := range monitored {
		g.Go(func() error {
			increased, err := p.check(gctx, m)
			mu.Lock()
			defer mu.Unlock()
			sum.Checked++
			if err != nil {
				sum.Failed++
				p.log.Warn("dispute poll failed",
					zap.String("client_id", m.ClientID),
					zap.String("shop", m.ShopDomain),
					zap.Error(err))
				return nil
			}
			if increased {
				sum.Increased++
			}
			return nil
		})
	}
	_ = g.Wait()

	sum.Duration = p.now().Sub(start)
	p.log.Info("dispute poll finished",
		zap.Int("checked", sum.Checked),
		zap.Int("increased", sum.Increased),
		zap.Int("failed", sum.Failed),
		zap.Duration("duration", sum.Duration))
	return sum, nil
}

func (p *Poller) check(ctx context.Context, m client.Monitored) (bool, error) {
	count, err := p.counter.CountDisputes(ctx, m.ShopDomain, m.AccessToken)
	if err != nil {
		return false, err
	}
	if count == m.DisputeCount {
		return false, nil
	}
	if err := p.clients.UpdateDisputeCount(ctx, m.ClientID, count); err != nil {
		return false, err
	}
	if count < m.DisputeCount {
		return false, nil
	}

	if p.alertEmail == "" || p.alerts == nil {
		return true, nil
	}
	alert := notify.DisputeAlert{
		ClientName: m.ClientName,
		ShopDomain: m.ShopDomain,
		Previous:   m.DisputeCount,
		Current:    count,
	}
	if err := p.alerts.SendDisputeAlert(ctx, p.alertEmail, alert); err != nil {
		p.log.Error("dispute alert not queued",
			zap.String("client_id", m.ClientID),
			zap.Error(err))
	}
	return true, nil
}
