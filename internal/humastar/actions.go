package humastar

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is a link to an operation that is valid in the resource's current
// state, for example the category selector only while treatments are shown.
// It is written as an RFC 8288 Link header with method and title
// parameters:
//
//	</api/v1/sessions/42/toggle>; rel="toggle"; method="POST"; title="Switch the visible dataset"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
	Schema string // JSON Schema of the request body, if any
}

// Actor is implemented by response bodies that carry actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as a Link header value.
func (a Action) LinkHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<%s>; rel=%q", a.Href, a.Rel)
	for _, p := range [][2]string{{"method", a.Method}, {"title", a.Title}, {"schema", a.Schema}} {
		if p[1] != "" {
			b.WriteString("; " + p[0] + "=" + strconv.Quote(p[1]))
		}
	}
	return b.String()
}

// ActionDef is an action whose Href is built from Pattern and a resource
// id (one %s verb).
type ActionDef struct {
	Rel     string
	Pattern string
	Method  string
	Title   string
	Schema  string
}

// ActionsFor instantiates defs for one resource.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, id),
			Method: d.Method,
			Title:  d.Title,
			Schema: d.Schema,
		}
	}
	return actions
}
