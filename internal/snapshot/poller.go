package snapshot

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/printshop-os/opsboard/internal/cms"
	"github.com/printshop-os/opsboard/internal/domain"
	"github.com/printshop-os/opsboard/internal/events"
	"github.com/printshop-os/opsboard/internal/schedule"
)

// Fetcher is the slice of the CMS client the poller needs.
type Fetcher interface {
	ListJobs(ctx context.Context) ([]domain.Job, error)
	ListInvoices(ctx context.Context) ([]domain.Invoice, error)
	ListSOPs(ctx context.Context) ([]domain.SOP, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// PollerConfig holds poller tuning
type PollerConfig struct {
	Interval       time.Duration
	FetchTimeout   time.Duration
	DemoMode       bool
	DailyCapacity  int
	Location       *time.Location
	OverbookedDays int
}

// Poller refreshes the store on an interval. Each cycle carries a sequence
// number and a fetch timeout so a hung fetch can neither block the loop nor
// clobber fresher data when it finally returns.
type Poller struct {
	config    *PollerConfig
	fetcher   Fetcher
	store     *Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time

	seq        atomic.Uint64
	overbooked map[string]bool
}

// NewPoller creates a poller bound to a store.
func NewPoller(config *PollerConfig, fetcher Fetcher, store *Store, publisher events.Publisher, logger *slog.Logger) *Poller {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.FetchTimeout <= 0 || config.FetchTimeout > config.Interval {
		config.FetchTimeout = config.Interval * 2 / 3
	}
	if config.DailyCapacity <= 0 {
		config.DailyCapacity = schedule.DefaultDailyCapacity
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.OverbookedDays <= 0 {
		config.OverbookedDays = 7
	}

	return &Poller{
		config:     config,
		fetcher:    fetcher,
		store:      store,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
		overbooked: make(map[string]bool),
	}
}

// Run polls immediately, then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Starting CMS poller",
		slog.Duration("interval", p.config.Interval),
		slog.Duration("fetch_timeout", p.config.FetchTimeout),
		slog.Bool("demo_mode", p.config.DemoMode),
	)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("CMS poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one fetch-and-replace cycle.
func (p *Poller) poll(ctx context.Context) {
	seq := p.seq.Add(1)

	fetchCtx, cancel := context.WithTimeout(ctx, p.config.FetchTimeout)
	defer cancel()

	started := p.now()
	jobs, err := p.fetcher.ListJobs(fetchCtx)
	if err != nil {
		p.store.RecordFailure(err, p.now())
		p.logger.Error("CMS fetch failed, keeping previous snapshot",
			slog.Uint64("seq", seq),
			slog.Any("error", err),
		)
		p.seedDemoData(ctx)
		return
	}

	// Jobs are the core; the other collections are best-effort, keeping
	// their previous contents when a fetch fails.
	data := Collections{Jobs: jobs}
	if invoices, err := p.fetcher.ListInvoices(fetchCtx); err == nil {
		data.Invoices = invoices
	} else {
		p.logger.Warn("Invoice fetch failed, keeping previous", slog.Any("error", err))
		data.Invoices = p.store.Invoices()
	}
	if sops, err := p.fetcher.ListSOPs(fetchCtx); err == nil {
		data.SOPs = sops
	} else {
		p.logger.Warn("SOP fetch failed, keeping previous", slog.Any("error", err))
		data.SOPs = p.store.SOPs()
	}
	if products, err := p.fetcher.ListProducts(fetchCtx); err == nil {
		data.Products = products
	} else {
		p.logger.Warn("Product fetch failed, keeping previous", slog.Any("error", err))
		data.Products = p.store.Products()
	}

	if !p.store.Replace(seq, data, SourceCMS, p.now()) {
		p.logger.Warn("Discarding stale snapshot", slog.Uint64("seq", seq))
		return
	}

	p.logger.Debug("Snapshot refreshed",
		slog.Uint64("seq", seq),
		slog.Int("jobs", len(jobs)),
		slog.Duration("took", p.now().Sub(started)),
	)

	p.checkOverbooked(ctx, jobs)
}

// seedDemoData is the one place demo fixtures enter the system: demo mode is
// on in config, the fetch just failed, and no snapshot was ever installed.
func (p *Poller) seedDemoData(ctx context.Context) {
	if !p.config.DemoMode || p.store.HasSnapshot() {
		return
	}

	now := p.now()
	seq := p.seq.Add(1)
	data := Collections{
		Jobs:     cms.DemoJobs(now),
		Invoices: cms.DemoInvoices(now),
		SOPs:     cms.DemoSOPs(now),
		Products: cms.DemoProducts(now),
	}
	if p.store.Replace(seq, data, SourceDemo, now) {
		p.logger.Warn("CMS unreachable, seeded demo dataset",
			slog.Int("jobs", len(data.Jobs)),
		)
		p.checkOverbooked(ctx, data.Jobs)
	}
}

// checkOverbooked publishes capacity.overbooked for days in the coming week
// that newly tipped over capacity since the last cycle.
func (p *Poller) checkOverbooked(ctx context.Context, jobs []domain.Job) {
	from := p.now()
	to := from.AddDate(0, 0, p.config.OverbookedDays-1)
	days := schedule.BucketByDay(jobs, from, to, p.config.Location, p.config.DailyCapacity)

	current := make(map[string]bool, len(days))
	for _, day := range days {
		key := day.Date.Format("2006-01-02")
		current[key] = day.IsOverbooked
		if !day.IsOverbooked || p.overbooked[key] {
			continue
		}

		event := events.New(events.TypeCapacityOverbooked, map[string]any{
			"date":             key,
			"scheduled_jobs":   day.ScheduledJobs,
			"total_capacity":   day.TotalCapacity,
			"percent_utilized": day.PercentUtilized,
		})
		if err := p.publisher.Publish(ctx, event); err != nil {
			p.logger.Error("Failed to publish overbooked event",
				slog.String("date", key),
				slog.Any("error", err),
			)
		}
	}
	p.overbooked = current
}
