package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/danielgtaylor/huma/v2"
)

// EntryPoint is the path every collection links back to.
const EntryPoint = "/health"

// linkIndex maps an operation path to its RFC 8288 Link header values.
type linkIndex map[string][]string

func (ix linkIndex) add(from, to, rel string) {
	v := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if !slices.Contains(ix[from], v) {
		ix[from] = append(ix[from], v)
	}
}

var index atomic.Pointer[linkIndex]

// AutoLinks derives hypermedia links from the registered operations and
// records them in the OpenAPI document. Call it once every route is
// registered. Operations tagged "ui" serve the Datastar page and are left
// out.
func AutoLinks(api huma.API) {
	oapi := api.OpenAPI()
	ix := linkIndex{}

	var collections, items []string
	for p, pi := range oapi.Paths {
		if slices.Contains(tagsOf(pi), "ui") {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	slices.Sort(collections)
	slices.Sort(items)

	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; !ok {
			continue
		}
		// /sessions/{id} belongs to /sessions; /sessions/{id}/table only
		// sits under its session.
		if !strings.Contains(parent, "{") {
			ix.add(item, parent, "collection")
			ix.add(parent, item, "item")
		}
		ix.add(item, parent, "up")
	}

	for _, coll := range collections {
		pi := oapi.Paths[coll]
		if coll != EntryPoint {
			ix.add(coll, EntryPoint, "up")
			ix.add(EntryPoint, coll, lastSegment(coll))
		}
		if pi.Post != nil {
			ix.add(coll, coll, "create-form")
		}
	}
	for _, item := range items {
		if pi := oapi.Paths[item]; pi.Put != nil || pi.Patch != nil {
			ix.add(item, item, "edit")
		}
	}

	ix.add(EntryPoint, "/openapi.json", "describedby")
	ix.add(EntryPoint, "/openapi.json", "service-desc")
	ix.add(EntryPoint, "/docs", "service-doc")

	for _, p := range append(collections, items...) {
		if ref := responseSchema(oapi.Paths[p]); ref != "" {
			ix.add(p, "/openapi.json#/components/schemas/"+ref, "describedby")
		}
	}

	for p, headers := range ix {
		pi, ok := oapi.Paths[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				documentLinks(op, headers)
			}
		}
	}
	index.Store(&ix)
}

// LinkTransformer returns a Huma Transformer that writes the derived links,
// a self link for item paths, pagination links for Pager bodies and action
// links for Actor bodies.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		if ix := index.Load(); ix != nil {
			for _, link := range (*ix)[op.Path] {
				ctx.AppendHeader("Link", link)
			}
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

// RootLinks returns the entry point links for handlers outside Huma.
func RootLinks() []string {
	if ix := index.Load(); ix != nil {
		return (*ix)[EntryPoint]
	}
	return nil
}

func tagsOf(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func lastSegment(p string) string {
	return path.Base(strings.TrimRight(p, "/"))
}

// documentLinks adds the links to the operation's 2xx response as OpenAPI
// Link objects.
func documentLinks(op *huma.Operation, headers []string) {
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		href, rel, ok := parseLink(h)
		if !ok {
			continue
		}
		resp.Links[rel] = &huma.Link{OperationRef: href, Description: "Related: " + rel}
	}
}

// responseSchema names the schema of the GET success response, if any.
func responseSchema(pi *huma.PathItem) string {
	if pi == nil || pi.Get == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				return path.Base(mt.Schema.Ref)
			}
		}
	}
	return ""
}

// parseLink splits `<href>; rel="name"`.
func parseLink(h string) (href, rel string, ok bool) {
	target, params, found := strings.Cut(h, ";")
	if !found {
		return "", "", false
	}
	rel, found = strings.CutPrefix(strings.TrimSpace(params), "rel=")
	if !found {
		return "", "", false
	}
	return strings.Trim(strings.TrimSpace(target), "<>"), strings.Trim(rel, `"`), true
}
