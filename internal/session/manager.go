// Package session keeps one controller per browser session and tears
// sessions down when they go idle.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-paser/internal/controller"
	"github.com/joeblew999/plat-paser/internal/metrics"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Factory builds an unstarted controller for a session id.
type Factory func(id string) *controller.Controller

// Manager is the session registry. Every lookup extends the session's
// lifetime by the idle TTL.
type Manager struct {
	cache   *ttlcache.Cache[string, *controller.Controller]
	ttl     time.Duration
	factory Factory
	log     *logrus.Entry
}

// NewManager creates a registry whose sessions expire after ttl without
// access.
func NewManager(ttl time.Duration, factory Factory, log *logrus.Entry) *Manager {
	cache := ttlcache.New[string, *controller.Controller](
		ttlcache.WithTTL[string, *controller.Controller](ttl),
	)
	m := &Manager{cache: cache, ttl: ttl, factory: factory, log: log}

	cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *controller.Controller]) {
		metrics.LiveSessions.Dec()
		entry := log.WithFields(logrus.Fields{"session": item.Key(), "reason": evictionReason(reason)})
		go func() {
			if err := item.Value().Close(); err != nil {
				entry.WithError(err).Warn("session teardown")
				return
			}
			entry.Info("session ended")
		}()
	})
	go cache.Start()
	return m
}

func evictionReason(r ttlcache.EvictionReason) string {
	switch r {
	case ttlcache.EvictionReasonExpired:
		return "expired"
	case ttlcache.EvictionReasonDeleted:
		return "deleted"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	}
	return "unknown"
}

// Create starts a controller under a new session id.
func (m *Manager) Create(ctx context.Context) (*controller.Controller, error) {
	id := uuid.NewString()
	c := m.factory(id)
	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, err
	}
	m.cache.Set(id, c, ttlcache.DefaultTTL)
	metrics.LiveSessions.Inc()
	m.log.WithField("session", id).Info("session started")
	return c, nil
}

// Get returns the session's controller and refreshes its lifetime.
func (m *Manager) Get(id string) (*controller.Controller, error) {
	item := m.cache.Get(id)
	if item == nil {
		return nil, ErrNotFound
	}
	return item.Value(), nil
}

// Touch extends the session's lifetime without using it. Long-lived
// readers such as event streams call it at least once per TTL.
func (m *Manager) Touch(id string) error {
	if m.cache.Get(id) == nil {
		return ErrNotFound
	}
	return nil
}

// TTL returns the idle lifetime of a session.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Delete ends a session.
func (m *Manager) Delete(id string) error {
	if m.cache.Get(id) == nil {
		return ErrNotFound
	}
	m.cache.Delete(id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int { return m.cache.Len() }

// Close ends every session and stops the expiry loop.
func (m *Manager) Close() {
	m.cache.DeleteAll()
	m.cache.Stop()
}
