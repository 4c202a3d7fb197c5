package osm

import (
	"encoding/xml"

	"github.com/NERVsystems/osmapi/pkg/query"
	"github.com/NERVsystems/osmapi/pkg/wire"
)

// Element type names as they appear on the wire and in endpoint paths
const (
	TypeNode     = "node"
	TypeWay      = "way"
	TypeRelation = "relation"
)

// Tag is a key/value pair on an element or changeset
//
// Tag, node and member lists encode nothing when empty, so an empty list
// and a nil list are equivalent and both decode as nil.
type Tag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

// Tags builds a tag list from alternating keys and values
func Tags(kv ...string) []Tag {
	tags := make([]Tag, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		tags = append(tags, Tag{K: kv[i], V: kv[i+1]})
	}
	return tags
}

// Meta holds the attributes every element carries. Zero values are left
// out when encoding, so a new element only needs its changeset set.
type Meta struct {
	ID        int64  `xml:"id,attr,omitempty"`
	Version   int    `xml:"version,attr,omitempty"`
	Changeset int64  `xml:"changeset,attr,omitempty"`
	Timestamp string `xml:"timestamp,attr,omitempty"`
	User      string `xml:"user,attr,omitempty"`
	UID       int64  `xml:"uid,attr,omitempty"`
	Visible   *bool  `xml:"visible,attr,omitempty"`
}

// ElementID returns the element id
func (m Meta) ElementID() int64 { return m.ID }

// ElementVersion returns the element version
func (m Meta) ElementVersion() int { return m.Version }

// Element is implemented by Node, Way and Relation
type Element interface {
	ElementType() string
	ElementID() int64
	ElementVersion() int
}

// Primitive constrains the element façades to the three element types
type Primitive interface {
	Node | Way | Relation
	Element
}

// Node is a point
type Node struct {
	Meta
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Tags []Tag   `xml:"tag"`
}

// ElementType implements Element
func (Node) ElementType() string { return TypeNode }

// NodeRef references a node from a way
type NodeRef struct {
	Ref int64 `xml:"ref,attr"`
}

// Way is an ordered list of nodes
type Way struct {
	Meta
	Nodes []NodeRef `xml:"nd"`
	Tags  []Tag     `xml:"tag"`
}

// ElementType implements Element
func (Way) ElementType() string { return TypeWay }

// NodeIDs returns the ids of the referenced nodes in order
func (w Way) NodeIDs() []int64 {
	ids := make([]int64, len(w.Nodes))
	for i, nd := range w.Nodes {
		ids[i] = nd.Ref
	}
	return ids
}

// Member is one entry of a relation
type Member struct {
	Type string `xml:"type,attr"`
	Ref  int64  `xml:"ref,attr"`
	Role string `xml:"role,attr"`
}

// Relation groups elements with roles
type Relation struct {
	Meta
	Members []Member `xml:"member"`
	Tags    []Tag    `xml:"tag"`
}

// ElementType implements Element
func (Relation) ElementType() string { return TypeRelation }

// elementVariants decodes any of the three element types into Element
var elementVariants = []wire.Variant[Element]{
	wire.Into(TypeNode, func(n *Node) Element { return *n }),
	wire.Into(TypeWay, func(w *Way) Element { return *w }),
	wire.Into(TypeRelation, func(r *Relation) Element { return *r }),
}

// BoundingBox is a rectangle given as left, bottom, right, top in degrees
type BoundingBox struct {
	Left   float64 `validate:"gte=-180,lte=180"`
	Bottom float64 `validate:"gte=-90,lte=90"`
	Right  float64 `validate:"gte=-180,lte=180,gtefield=Left"`
	Top    float64 `validate:"gte=-90,lte=90,gtefield=Bottom"`
}

// String renders the box as "left,bottom,right,top"
func (b BoundingBox) String() string {
	return query.BBox(b.Left, b.Bottom, b.Right, b.Top)
}

// Bounds is the <bounds> element of map responses
type Bounds struct {
	MinLat float64 `xml:"minlat,attr"`
	MinLon float64 `xml:"minlon,attr"`
	MaxLat float64 `xml:"maxlat,attr"`
	MaxLon float64 `xml:"maxlon,attr"`
}

// BoundingBox converts b
func (b Bounds) BoundingBox() BoundingBox {
	return BoundingBox{Left: b.MinLon, Bottom: b.MinLat, Right: b.MaxLon, Top: b.MaxLat}
}

// Map is the map data of a bounding box or a full way or relation.
// Elements keep the server's document order.
type Map struct {
	Bounds   *Bounds
	Elements []Element
}

// UnmarshalXML implements xml.Unmarshaler
func (m *Map) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	variants := []wire.Variant[any]{
		wire.Into("bounds", func(b *Bounds) any { return b }),
		wire.Into(TypeNode, func(n *Node) any { return *n }),
		wire.Into(TypeWay, func(w *Way) any { return *w }),
		wire.Into(TypeRelation, func(r *Relation) any { return *r }),
	}

	return wire.Walk(d, start, variants, func(v any) bool {
		switch item := v.(type) {
		case *Bounds:
			m.Bounds = item
		case Element:
			m.Elements = append(m.Elements, item)
		}
		return true
	})
}

// Nodes returns the nodes in m
func (m Map) Nodes() []Node { return filter[Node](m.Elements) }

// Ways returns the ways in m
func (m Map) Ways() []Way { return filter[Way](m.Elements) }

// Relations returns the relations in m
func (m Map) Relations() []Relation { return filter[Relation](m.Elements) }

func filter[E Primitive](elements []Element) []E {
	var out []E
	for _, el := range elements {
		if e, ok := el.(E); ok {
			out = append(out, e)
		}
	}
	return out
}
