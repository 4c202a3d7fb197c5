package osm

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/NERVsystems/osmapi/pkg/core"
	"github.com/NERVsystems/osmapi/pkg/query"
	"github.com/NERVsystems/osmapi/pkg/wire"
)

// Elements is the façade for one element type
type Elements[E Primitive] struct {
	client *Client
	kind   string
}

func newElements[E Primitive](c *Client) Elements[E] {
	var zero E
	return Elements[E]{client: c, kind: zero.ElementType()}
}

func (e Elements[E]) single() wire.Shape[E] {
	return wire.Single(wire.Tag[E](e.kind))
}

func (e Elements[E]) list() wire.Shape[[]E] {
	return wire.List(wire.Tag[E](e.kind))
}

func (e Elements[E]) body(element E) wire.RequestBody {
	return wire.XML(wire.Wrap("osm", e.kind, element))
}

// Create uploads a new element and returns the id the server assigned
func (e Elements[E]) Create(ctx context.Context, element E) (int64, error) {
	id, err := Do(ctx, e.client, Request{
		Operation: e.kind + ".create",
		Method:    http.MethodPut,
		Endpoint:  endpoint("%s/create", e.kind),
		Body:      e.body(element),
		Options:   VersionedAuth,
	}, wire.Uint())
	return int64(id), err
}

// Get fetches the current version of an element
func (e Elements[E]) Get(ctx context.Context, id int64) (E, error) {
	return Do(ctx, e.client, Request{
		Operation: e.kind + ".get",
		Method:    http.MethodGet,
		Endpoint:  endpoint("%s/%d", e.kind, id),
		Options:   Versioned,
	}, e.single())
}

// Update uploads a modified element and returns its new version
func (e Elements[E]) Update(ctx context.Context, element E) (int, error) {
	version, err := Do(ctx, e.client, Request{
		Operation: e.kind + ".update",
		Method:    http.MethodPut,
		Endpoint:  endpoint("%s/%d", e.kind, element.ElementID()),
		Body:      e.body(element),
		Options:   VersionedAuth,
	}, wire.Uint())
	return int(version), err
}

// Delete deletes an element and returns its new version. The element must
// carry its current version and an open changeset.
func (e Elements[E]) Delete(ctx context.Context, element E) (int, error) {
	version, err := Do(ctx, e.client, Request{
		Operation: e.kind + ".delete",
		Method:    http.MethodDelete,
		Endpoint:  endpoint("%s/%d", e.kind, element.ElementID()),
		Body:      e.body(element),
		Options:   VersionedAuth,
	}, wire.Uint())
	return int(version), err
}

// History returns every version of an element, oldest first
func (e Elements[E]) History(ctx context.Context, id int64) ([]E, error) {
	return Do(ctx, e.client, Request{
		Operation: e.kind + ".history",
		Method:    http.MethodGet,
		Endpoint:  endpoint("%s/%d/history", e.kind, id),
		Options:   Versioned,
	}, e.list())
}

// Version fetches one specific version of an element
func (e Elements[E]) Version(ctx context.Context, id int64, version int) (E, error) {
	return Do(ctx, e.client, Request{
		Operation: e.kind + ".version",
		Method:    http.MethodGet,
		Endpoint:  endpoint("%s/%d/%d", e.kind, id, version),
		Options:   Versioned,
	}, e.single())
}

// ElementRef names an element id, optionally pinned to a version
type ElementRef struct {
	ID      int64
	Version int
}

// String renders the ref as "id" or "idvN"
func (r ElementRef) String() string {
	s := strconv.FormatInt(r.ID, 10)
	if r.Version > 0 {
		s += "v" + strconv.Itoa(r.Version)
	}
	return s
}

// Refs turns plain ids into unversioned refs
func Refs(ids ...int64) []ElementRef {
	refs := make([]ElementRef, len(ids))
	for i, id := range ids {
		refs[i] = ElementRef{ID: id}
	}
	return refs
}

// MultiGet fetches several elements in one call
func (e Elements[E]) MultiGet(ctx context.Context, refs ...ElementRef) ([]E, error) {
	if len(refs) == 0 {
		return nil, core.NewError(core.CodeQueryEncode, "multi-get needs at least one id")
	}

	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	plural := e.kind + "s"
	ep := query.Join(plural, url.Values{plural: {strings.Join(parts, ",")}}.Encode())

	return Do(ctx, e.client, Request{
		Operation: e.kind + ".multi_get",
		Method:    http.MethodGet,
		Endpoint:  ep,
		Options:   Versioned,
	}, e.list())
}

// Relations returns the relations an element is a member of
func (e Elements[E]) Relations(ctx context.Context, id int64) ([]Relation, error) {
	return Do(ctx, e.client, Request{
		Operation: e.kind + ".relations",
		Method:    http.MethodGet,
		Endpoint:  endpoint("%s/%d/relations", e.kind, id),
		Options:   Versioned,
	}, wire.List(wire.Tag[Relation](TypeRelation)))
}

// Full fetches a way or relation together with every element it references
func (e Elements[E]) Full(ctx context.Context, id int64) (Map, error) {
	return Do(ctx, e.client, Request{
		Operation: e.kind + ".full",
		Method:    http.MethodGet,
		Endpoint:  endpoint("%s/%d/full", e.kind, id),
		Options:   Versioned,
	}, wire.Document[Map]())
}

// NodesAPI adds node-only calls to the element façade
type NodesAPI struct {
	Elements[Node]
}

// Ways returns the ways that reference a node
func (n NodesAPI) Ways(ctx context.Context, id int64) ([]Way, error) {
	return Do(ctx, n.client, Request{
		Operation: "node.ways",
		Method:    http.MethodGet,
		Endpoint:  endpoint("node/%d/ways", id),
		Options:   Versioned,
	}, wire.List(wire.Tag[Way](TypeWay)))
}
