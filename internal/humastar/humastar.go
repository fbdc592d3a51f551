// Package humastar joins Huma operations to Datastar. Handlers stay plain
// Huma operations; the ones that drive the page return a StreamResponse
// whose body speaks the Datastar SSE protocol.
//
//	func (h *Handler) Events(ctx context.Context, in *SessionInput) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Patch(h.Fragment("legend", items), "#legend")
//	    }), nil
//	}
//
// The package also derives RFC 8288 links for the JSON API (AutoLinks,
// LinkTransformer, Pager, Actor).
package humastar

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-paser/internal/templates"
)

// Handler is embedded by handlers that render fragments into SSE streams.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream wraps fn as a Huma streaming response.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(ctx huma.Context) { fn(NewSSE(ctx)) },
	}
}

// Fragment renders a named fragment. A failed render yields an
// empty-state block naming the error.
func (h *Handler) Fragment(name string, data any) string {
	out, err := h.Renderer.Render(name, data)
	if err == nil {
		return out
	}
	out, _ = h.Renderer.Render("empty-state", map[string]string{
		"Title":   "Render error",
		"Message": err.Error(),
	})
	return out
}

// SelectOptionData feeds the "select-option" fragment.
type SelectOptionData struct {
	Value    string
	Label    string
	Selected bool
}

// SSE is a Datastar event writer with the patch modes the viewer uses.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE starts a Datastar stream on a humago request.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch morphs html into the element matching selector.
func (s SSE) Patch(html, selector string) error {
	return s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
		datastar.WithViewTransitions(),
	)
}

// Replace swaps the element matching selector for html.
func (s SSE) Replace(html, selector string) error {
	return s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeOuter(),
	)
}

// Error sets the error signal.
func (s SSE) Error(msg string) error {
	return s.MarshalAndPatchSignals(map[string]any{"error": msg})
}

// Signals patches signals.
func (s SSE) Signals(signals map[string]any) error {
	return s.MarshalAndPatchSignals(signals)
}
