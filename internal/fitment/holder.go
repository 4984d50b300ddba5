package fitment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/introcar/introcar-backend/internal/supersession"
	"github.com/introcar/introcar-backend/internal/vehicles"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/metrics"
)

// Loader reads the data an index is built from.
type Loader interface {
	Load(ctx context.Context) (Source, error)
}

// Resolver is the read surface used by the storefront.
type Resolver interface {
	Catalog() *vehicles.Catalog
	LookupChassis(ctx context.Context, req LookupRequest) LookupResult
	ResolveChassisRange(ctx context.Context, mk, model string, year int) (ChassisRange, bool, error)
	ResolveSKUs(ctx context.Context, req SKURequest) (SKUResolution, error)
	ResolveSupersession(sku string) supersession.Resolution
	RelatedVehicleSKUs(sku string) map[string]int
	FitsOf(sku string) []Vehicle
	FittedModels(mk string) []string
}

// Holder owns the active Index and swaps it atomically on reload. Reads
// never block; reloads are serialized.
type Holder struct {
	current atomic.Pointer[Index]
	loader  Loader
	opts    Options
	timeout time.Duration
	logg    *logger.Logger
	metrics *metrics.CatalogMetrics

	reloadMu sync.Mutex
}

// HolderConfig wires a Holder.
type HolderConfig struct {
	Loader  Loader
	Options Options
	Timeout time.Duration
	Logger  *logger.Logger
	Metrics *metrics.CatalogMetrics
}

func NewHolder(cfg HolderConfig) (*Holder, error) {
	if cfg.Loader == nil {
		return nil, errors.New("fitment loader required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger required")
	}
	h := &Holder{
		loader:  cfg.Loader,
		opts:    cfg.Options.withDefaults(),
		timeout: cfg.Timeout,
		logg:    cfg.Logger,
		metrics: cfg.Metrics,
	}
	h.current.Store(Build(Source{}, h.opts))
	return h, nil
}

// Reload rebuilds the index from the loader and publishes it.
func (h *Holder) Reload(ctx context.Context) (Report, error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	started := time.Now()
	src, err := h.loader.Load(ctx)
	if err != nil {
		h.metrics.IncReload(false)
		return Report{}, fmt.Errorf("loading fitment data: %w", err)
	}
	idx := Build(src, h.opts)
	h.current.Store(idx)

	report := idx.Report()
	for _, issue := range report.Issues {
		h.logIssue(ctx, issue)
	}
	h.metrics.IncReload(true)
	h.metrics.SetIndexSize(report.Records-report.Skipped, report.Models)

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"records":       report.Records,
		"skipped":       report.Skipped,
		"models":        report.Models,
		"boundaries":    report.Boundaries,
		"supersessions": report.Links,
		"duration_ms":   time.Since(started).Milliseconds(),
	})
	h.logg.Info(logCtx, "fitment index loaded")
	return report, nil
}

func (h *Holder) logIssue(ctx context.Context, issue Issue) {
	h.metrics.IncIntegrity(string(issue.Kind))
	fields := map[string]any{
		"reason": string(issue.Kind),
		"detail": issue.Detail,
	}
	if issue.SKU != "" {
		fields["sku"] = issue.SKU
	}
	if issue.Make != "" {
		fields["make"] = issue.Make
		fields["model"] = issue.Model
	}
	h.logg.Warn(h.logg.WithFields(ctx, fields), "catalog data integrity issue")
}

// Index returns the active snapshot.
func (h *Holder) Index() *Index {
	return h.current.Load()
}

func (h *Holder) Catalog() *vehicles.Catalog {
	return h.Index().Catalog()
}

func (h *Holder) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.timeout)
}

func (h *Holder) LookupChassis(ctx context.Context, req LookupRequest) LookupResult {
	ctx, cancel := h.withDeadline(ctx)
	defer cancel()

	started := time.Now()
	res := h.Index().LookupChassis(ctx, req)
	h.metrics.ObserveResolve("lookup_chassis", time.Since(started))

	mode := "global"
	if req.Validating() {
		mode = "model"
	}
	h.metrics.IncLookup(string(res.Kind), mode)
	if res.Kind == LookupFailed {
		h.logg.Warn(h.logg.WithField(ctx, "chassis", res.Chassis), "chassis lookup exceeded deadline")
	}
	return res
}

func (h *Holder) ResolveChassisRange(ctx context.Context, mk, model string, year int) (ChassisRange, bool, error) {
	ctx, cancel := h.withDeadline(ctx)
	defer cancel()

	started := time.Now()
	defer func() { h.metrics.ObserveResolve("resolve_chassis_range", time.Since(started)) }()
	return h.Index().ResolveChassisRange(ctx, mk, model, year)
}

func (h *Holder) ResolveSKUs(ctx context.Context, req SKURequest) (SKUResolution, error) {
	ctx, cancel := h.withDeadline(ctx)
	defer cancel()

	started := time.Now()
	res, err := h.Index().ResolveSKUs(ctx, req)
	h.metrics.ObserveResolve("resolve_skus", time.Since(started))
	if err != nil {
		return SKUResolution{}, err
	}
	for _, issue := range res.Issues {
		h.logIssue(ctx, issue)
	}
	return res, nil
}

func (h *Holder) ResolveSupersession(sku string) supersession.Resolution {
	return h.Index().ResolveSupersession(sku)
}

func (h *Holder) RelatedVehicleSKUs(sku string) map[string]int {
	return h.Index().RelatedVehicleSKUs(sku)
}

func (h *Holder) FitsOf(sku string) []Vehicle {
	return h.Index().FitsOf(sku)
}

func (h *Holder) FittedModels(mk string) []string {
	return h.Index().FittedModels(mk)
}
