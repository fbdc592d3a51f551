package ui

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-paser/internal/controller"
	"github.com/joeblew999/plat-paser/internal/humastar"
	"github.com/joeblew999/plat-paser/internal/service"
)

// Events streams the session's widget, legend, table and map state. The
// full view is sent once on connect and again after every change. An open
// stream keeps its session from expiring.
func (h *Handler) Events(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	return h.Stream(func(sse humastar.SSE) {
		ch := c.Events().Subscribe()
		defer c.Events().Unsubscribe(ch)

		if err := h.push(sse, c); err != nil {
			return
		}

		var keepalive <-chan time.Time
		if ttl := h.sessions.TTL(); ttl > 0 {
			t := time.NewTicker(ttl / 2)
			defer t.Stop()
			keepalive = t.C
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepalive:
				if err := h.sessions.Touch(input.ID); err != nil {
					sse.Error("Session ended, reload the page")
					return
				}
			case ev, ok := <-ch:
				if !ok || ev.Topic == service.TopicClosed {
					sse.Error("Session ended, reload the page")
					return
				}
				if err := h.push(sse, c); err != nil {
					return
				}
			}
		}
	}), nil
}

// push sends the current view of c.
func (h *Handler) push(sse humastar.SSE, c *controller.Controller) error {
	s, err := c.Snapshot()
	if err != nil {
		sse.Error(err.Error())
		return err
	}
	if err := sse.Replace(h.Fragment("widget", h.widget(s)), "#widget"); err != nil {
		return err
	}
	if err := sse.Patch(h.Fragment("legend", s.Legend), "#legend"); err != nil {
		return err
	}
	if t, err := c.Table(); err == nil {
		if err := sse.Patch(h.Fragment("table", t), "#table"); err != nil {
			return err
		}
	}
	sig := signals(s)
	delete(sig, "error")
	if err := sse.Signals(sig); err != nil {
		return err
	}
	return sse.DispatchCustomEvent("map-state", mapState(s))
}
