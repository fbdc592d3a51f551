// Package controller owns one viewer session: the filter state, the two
// layers, the category catalog and the attribute tables.
//
// All state lives on a single goroutine that runs posted closures in
// order. Slow feature-source calls run elsewhere and post their
// completions back, tagged so that superseded results are dropped.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/plat-paser/internal/catalog"
	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/featuresource"
	"github.com/joeblew999/plat-paser/internal/filter"
	"github.com/joeblew999/plat-paser/internal/layer"
	"github.com/joeblew999/plat-paser/internal/mapview"
	"github.com/joeblew999/plat-paser/internal/metrics"
	"github.com/joeblew999/plat-paser/internal/service"
	"github.com/joeblew999/plat-paser/internal/symbology"
	"github.com/joeblew999/plat-paser/internal/tablesync"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("controller closed")
	// ErrNotReady is returned by operations that need Start to have
	// completed.
	ErrNotReady = errors.New("controller not started")
)

// Phase is the lifecycle state.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseStarting      Phase = "starting"
	PhaseReady         Phase = "ready"
	PhaseClosed        Phase = "closed"
)

const defaultQueryTimeout = 30 * time.Second

// Config configures a Controller.
type Config struct {
	Session      string
	Datasets     dataset.Pair
	Opener       featuresource.Opener
	View         mapview.Config
	QueryTimeout time.Duration
	Log          *logrus.Entry
}

// Controller is the composition root of one session. Its methods are safe
// for concurrent use.
type Controller struct {
	cfg Config
	log *logrus.Entry
	bus *service.EventBus

	ctx    context.Context
	cancel context.CancelFunc

	events    chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// Owned by the loop goroutine.
	phase     Phase
	filter    filter.State
	binding   *layer.Binding
	view      *mapview.View
	catalog   catalog.Catalog
	tables    *tablesync.Sync
	inflight  map[dataset.Kind]context.CancelFunc
	tableErrs map[dataset.Kind]string
}

// New creates a Controller in the uninitialized phase and starts its loop.
func New(cfg Config) *Controller {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:       cfg,
		log:       cfg.Log.WithField("session", cfg.Session),
		bus:       service.NewEventBus(),
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan func()),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		phase:     PhaseUninitialized,
		filter:    filter.New(),
		tables:    tablesync.New(),
		inflight:  make(map[dataset.Kind]context.CancelFunc, 2),
		tableErrs: make(map[dataset.Kind]string, 2),
	}
	go c.loop()
	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.cfg.Session }

// Events returns the change feed of this controller. It is closed on
// teardown.
func (c *Controller) Events() *service.EventBus { return c.bus }

func (c *Controller) loop() {
	defer close(c.stopped)
	for {
		select {
		case <-c.done:
			return
		case fn := <-c.events:
			fn()
		}
	}
}

// post queues fn on the loop. It reports false once the loop has stopped.
func (c *Controller) post(fn func()) bool {
	select {
	case <-c.done:
		return false
	case c.events <- fn:
		return true
	}
}

// call runs fn on the loop and waits for its result.
func (c *Controller) call(fn func() error) error {
	errc := make(chan error, 1)
	ok := c.post(func() {
		if c.phase == PhaseClosed {
			errc <- ErrClosed
			return
		}
		errc <- fn()
	})
	if !ok {
		return ErrClosed
	}
	return <-errc
}

// complete posts an asynchronous completion. Completions arriving after
// teardown are dropped.
func (c *Controller) complete(fn func()) {
	c.post(func() {
		if c.phase == PhaseClosed {
			return
		}
		fn()
	})
}

func (c *Controller) ready() error {
	if c.phase != PhaseReady {
		return ErrNotReady
	}
	return nil
}

func (c *Controller) publish(topic service.Topic, k dataset.Kind) {
	c.bus.Publish(service.Event{
		Session:    c.cfg.Session,
		Topic:      topic,
		Dataset:    k,
		Generation: c.tables.Generation(k),
	})
}

// Start creates both layers, assigns their initial renderers, shows the
// continuous dataset, starts the category catalog load and pre-warms both
// tables. It returns once the controller is ready; the catalog and table
// queries complete in the background.
func (c *Controller) Start(ctx context.Context) error {
	err := c.call(func() error {
		if c.phase != PhaseUninitialized {
			return fmt.Errorf("start: controller is %s", c.phase)
		}
		c.phase = PhaseStarting
		return nil
	})
	if err != nil {
		return err
	}

	handles := make(map[dataset.Kind]*layer.Handle, 2)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range []dataset.Kind{dataset.Continuous, dataset.Discrete} {
		d := c.cfg.Datasets.Get(k)
		g.Go(func() error {
			h, err := layer.Create(gctx, c.cfg.Opener, d)
			if err != nil {
				return err
			}
			mu.Lock()
			handles[k] = h
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, h := range handles {
			h.Close()
		}
		c.log.WithError(err).Error("layer creation failed")
		if cerr := c.call(func() error { c.phase = PhaseUninitialized; return nil }); cerr != nil {
			return cerr
		}
		return err
	}

	binding := layer.NewBinding(handles[dataset.Continuous], handles[dataset.Discrete])
	err = c.call(func() error {
		c.binding = binding
		c.view = mapview.New(c.cfg.View)
		for _, k := range []dataset.Kind{dataset.Continuous, dataset.Discrete} {
			if err := c.view.Add(binding.Handle(k)); err != nil {
				return err
			}
			if err := c.rebuild(k, c.filter); err != nil {
				return err
			}
		}
		c.filter.Active = dataset.Continuous
		c.binding.SetActive(dataset.Continuous)
		c.phase = PhaseReady

		c.loadCatalog()
		c.refresh(dataset.Continuous)
		c.refresh(dataset.Discrete)

		c.log.Info("controller ready")
		c.publish(service.TopicReady, dataset.Continuous)
		return nil
	})
	if err != nil {
		binding.Close()
		return err
	}
	return nil
}

// rebuild builds and assigns k's renderer for f. On error nothing is
// assigned.
func (c *Controller) rebuild(k dataset.Kind, f filter.State) error {
	r, err := symbology.Build(c.cfg.Datasets.Get(k), f)
	if err != nil {
		return err
	}
	c.binding.AssignRenderer(k, r)
	c.publish(service.TopicRenderer, k)
	return nil
}

func (c *Controller) loadCatalog() {
	d := c.cfg.Datasets.Treatment
	src := c.binding.Handle(dataset.Discrete).Source()
	log := c.log
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.QueryTimeout)
		defer cancel()
		cat := catalog.Load(ctx, src, d, log)
		c.complete(func() {
			c.catalog = cat
			c.publish(service.TopicCatalog, dataset.Discrete)
		})
	}()
}

// refresh issues a table query for k, cancelling the one in flight.
func (c *Controller) refresh(k dataset.Kind) {
	if cancel := c.inflight[k]; cancel != nil {
		cancel()
	}
	ticket := c.tables.Begin(k)
	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.QueryTimeout)
	c.inflight[k] = cancel

	h := c.binding.Handle(k)
	go func() {
		rows, err := h.QueryRows(ctx)
		c.complete(func() { c.applyRows(ticket, rows, err) })
	}()
}

func (c *Controller) applyRows(t tablesync.Ticket, rows []layer.Row, qerr error) {
	log := c.log.WithFields(logrus.Fields{"dataset": t.Dataset, "generation": t.Generation})
	err := c.tables.Apply(t, rows, qerr)
	switch {
	case errors.Is(err, tablesync.ErrStale):
		log.Debug("discarded stale table result")
		return
	case err != nil:
		log.WithError(err).Warn("table query failed, keeping previous rows")
		c.tableErrs[t.Dataset] = err.Error()
	default:
		delete(c.tableErrs, t.Dataset)
		log.WithField("rows", len(rows)).Debug("table updated")
	}
	if cancel := c.inflight[t.Dataset]; cancel != nil {
		cancel()
		delete(c.inflight, t.Dataset)
	}
	c.publish(service.TopicTable, t.Dataset)
}

// Toggle switches the visible dataset and returns the new one. Both
// visibility flags change together, the newly active dataset's renderer is
// rebuilt and its table refreshed.
func (c *Controller) Toggle() (dataset.Kind, error) {
	var active dataset.Kind
	err := c.call(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		active = c.filter.Active.Other()
		return c.activate(active)
	})
	return active, err
}

// SetActive makes k the visible dataset. Selecting the already active
// dataset changes nothing.
func (c *Controller) SetActive(k dataset.Kind) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %q", dataset.ErrUnknownDataset, k)
	}
	return c.call(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		if c.filter.Active == k {
			return nil
		}
		return c.activate(k)
	})
}

func (c *Controller) activate(k dataset.Kind) error {
	next := c.filter
	next.Active = k
	if err := c.rebuild(k, next); err != nil {
		return err
	}
	c.filter = next
	c.binding.SetActive(k)
	c.refresh(k)
	c.log.WithField("dataset", k).Debug("active dataset changed")
	c.publish(service.TopicDataset, k)
	return nil
}

// SetRangeMin sets the lower range bound, raising the upper bound if
// needed, and returns the resulting filter.
func (c *Controller) SetRangeMin(v int) (filter.State, error) {
	return c.editRange(func(f *filter.State) { f.SetMin(v) })
}

// SetRangeMax sets the upper range bound, lowering the lower bound if
// needed, and returns the resulting filter.
func (c *Controller) SetRangeMax(v int) (filter.State, error) {
	return c.editRange(func(f *filter.State) { f.SetMax(v) })
}

// SetRange applies a minimum edit then a maximum edit as one change. Nil
// bounds are left alone.
func (c *Controller) SetRange(lo, hi *int) (filter.State, error) {
	return c.editRange(func(f *filter.State) {
		if lo != nil {
			f.SetMin(*lo)
		}
		if hi != nil {
			f.SetMax(*hi)
		}
	})
}

func (c *Controller) editRange(edit func(*filter.State)) (filter.State, error) {
	var out filter.State
	err := c.call(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		next := c.filter
		edit(&next)
		if err := c.rebuild(dataset.Continuous, next); err != nil {
			c.log.WithError(err).Error("rebuilding continuous renderer")
			return err
		}
		c.filter = next
		c.refresh(c.filter.Active)
		c.publish(service.TopicFilter, dataset.Continuous)
		out = c.filter
		return nil
	})
	return out, err
}

// SelectCategory selects a category code, or every category for
// filter.ShowAll or "". A code with no configured style leaves the filter
// and renderer unchanged and returns an error wrapping
// symbology.ErrUnmatchedCategory.
func (c *Controller) SelectCategory(code string) (filter.State, error) {
	var out filter.State
	err := c.call(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		next := c.filter
		next.Select(code)
		out = c.filter
		if err := c.rebuild(dataset.Discrete, next); err != nil {
			if errors.Is(err, symbology.ErrUnmatchedCategory) {
				metrics.UnmatchedSelectionsTotal.Inc()
				c.log.WithField("category", code).Warn("ignoring selection with no configured style")
			}
			return err
		}
		c.filter = next
		c.refresh(c.filter.Active)
		c.publish(service.TopicFilter, dataset.Discrete)
		out = c.filter
		return nil
	})
	return out, err
}

// Renderer returns the renderer currently assigned to k.
func (c *Controller) Renderer(k dataset.Kind) (symbology.Renderer, error) {
	var r symbology.Renderer
	err := c.call(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		r = c.binding.Renderer(k)
		return nil
	})
	return r, err
}

// Catalog returns the category catalog. It is empty until the schema load
// completes, and stays empty if the load fails.
func (c *Controller) Catalog() (catalog.Catalog, error) {
	var cat catalog.Catalog
	err := c.call(func() error {
		cat = c.catalog
		return nil
	})
	return cat, err
}

// Close tears the session down: in-flight queries are cancelled, both
// layers and the map view are released and later completions are
// dropped. Close is idempotent.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.call(func() error {
			var terr error
			if c.binding != nil {
				terr = c.binding.Close()
			}
			if c.view != nil {
				c.view.Destroy()
			}
			c.phase = PhaseClosed
			c.publish(service.TopicClosed, "")
			c.bus.Close()
			c.log.Info("controller closed")
			return terr
		})
		close(c.done)
		<-c.stopped
	})
	return err
}
