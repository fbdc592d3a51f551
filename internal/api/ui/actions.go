package ui

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-paser/internal/controller"
	"github.com/joeblew999/plat-paser/internal/humastar"
	"github.com/joeblew999/plat-paser/internal/symbology"
)

// Toggle switches the visible dataset.
func (h *Handler) Toggle(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	_, err = c.Toggle()
	return h.reply(c, err), nil
}

// Range applies the range input that changed. Only one bound is edited per
// request so the other bound is clamped against it, never the reverse.
func (h *Handler) Range(ctx context.Context, input *ActionInput) (*huma.StreamResponse, error) {
	sig, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	s, err := c.Snapshot()
	if err != nil {
		return h.reply(c, err), nil
	}

	lo, hasLo := sig.Int("rangemin")
	hi, hasHi := sig.Int("rangemax")
	switch {
	case hasLo && lo != s.Filter.RangeMin:
		_, err = c.SetRangeMin(lo)
	case hasHi && hi != s.Filter.RangeMax:
		_, err = c.SetRangeMax(hi)
	}
	return h.reply(c, err), nil
}

// Category applies the selector value.
func (h *Handler) Category(ctx context.Context, input *ActionInput) (*huma.StreamResponse, error) {
	sig, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	_, err = c.SelectCategory(sig.String("category"))
	return h.reply(c, err), nil
}

// reply reports the outcome of an action and resyncs the inputs with the
// controller, so clamped or rejected values snap back.
func (h *Handler) reply(c *controller.Controller, actionErr error) *huma.StreamResponse {
	return h.Stream(func(sse humastar.SSE) {
		msg := ""
		switch {
		case actionErr == nil:
		case errors.Is(actionErr, symbology.ErrUnmatchedCategory):
			msg = "That treatment has no map style"
		case errors.Is(actionErr, controller.ErrClosed):
			msg = "Session ended, reload the page"
		default:
			h.log.WithError(actionErr).WithField("session", c.ID()).Warn("viewer action failed")
			msg = actionErr.Error()
		}

		s, err := c.Snapshot()
		if err != nil {
			sse.Error(msg)
			return
		}
		sig := signals(s)
		sig["error"] = msg
		sse.Signals(sig)
	})
}
