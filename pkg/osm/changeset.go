package osm

import (
	"context"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/NERVsystems/osmapi/pkg/core"
	"github.com/NERVsystems/osmapi/pkg/query"
	"github.com/NERVsystems/osmapi/pkg/wire"
)

// Changeset is a batch of edits. The bounding box is absent until the
// changeset contains an edit; discussion is only filled when requested.
type Changeset struct {
	ID            int64              `xml:"id,attr"`
	User          string             `xml:"user,attr,omitempty"`
	UID           int64              `xml:"uid,attr,omitempty"`
	CreatedAt     string             `xml:"created_at,attr,omitempty"`
	ClosedAt      *string            `xml:"closed_at,attr,omitempty"`
	Open          bool               `xml:"open,attr"`
	MinLat        *float64           `xml:"min_lat,attr,omitempty"`
	MinLon        *float64           `xml:"min_lon,attr,omitempty"`
	MaxLat        *float64           `xml:"max_lat,attr,omitempty"`
	MaxLon        *float64           `xml:"max_lon,attr,omitempty"`
	CommentsCount int                `xml:"comments_count,attr,omitempty"`
	ChangesCount  int                `xml:"changes_count,attr,omitempty"`
	Tags          []Tag              `xml:"tag"`
	Discussion    []ChangesetComment `xml:"discussion>comment"`
}

// BoundingBox returns the changeset's extent, or nil when it has none
func (c Changeset) BoundingBox() *BoundingBox {
	if c.MinLat == nil || c.MinLon == nil || c.MaxLat == nil || c.MaxLon == nil {
		return nil
	}
	return &BoundingBox{Left: *c.MinLon, Bottom: *c.MinLat, Right: *c.MaxLon, Top: *c.MaxLat}
}

// ChangesetComment is a discussion entry. Unlike note comments, its
// metadata are attributes and only the text is an element.
type ChangesetComment struct {
	ID   int64  `xml:"id,attr,omitempty"`
	Date string `xml:"date,attr"`
	UID  int64  `xml:"uid,attr"`
	User string `xml:"user,attr"`
	Text string `xml:"text"`
}

// ChangesetCreate is the payload for creating a changeset or replacing its tags
type ChangesetCreate struct {
	Tags []Tag `xml:"tag"`
}

var changesetShape = wire.Single(wire.Tag[Changeset]("changeset"))

// ChangesetsAPI is the changeset façade
type ChangesetsAPI struct {
	client *Client
}

// Create opens a new changeset and returns its id
func (a ChangesetsAPI) Create(ctx context.Context, cs ChangesetCreate) (int64, error) {
	id, err := Do(ctx, a.client, Request{
		Operation: "changeset.create",
		Method:    http.MethodPut,
		Endpoint:  "changeset/create",
		Body:      wire.XML(wire.Wrap("osm", "changeset", cs)),
		Options:   VersionedAuth,
	}, wire.Uint())
	return int64(id), err
}

// Get fetches a changeset without its discussion
func (a ChangesetsAPI) Get(ctx context.Context, id int64) (Changeset, error) {
	return Do(ctx, a.client, Request{
		Operation: "changeset.get",
		Method:    http.MethodGet,
		Endpoint:  endpoint("changeset/%d", id),
		Options:   Versioned,
	}, changesetShape)
}

// GetWithDiscussion fetches a changeset and its discussion
func (a ChangesetsAPI) GetWithDiscussion(ctx context.Context, id int64) (Changeset, error) {
	return Do(ctx, a.client, Request{
		Operation: "changeset.get_with_discussion",
		Method:    http.MethodGet,
		Endpoint:  endpoint("changeset/%d?include_discussion=true", id),
		Options:   Versioned,
	}, changesetShape)
}

// UpdateTags replaces the tags of an open changeset
func (a ChangesetsAPI) UpdateTags(ctx context.Context, id int64, tags []Tag) (Changeset, error) {
	return Do(ctx, a.client, Request{
		Operation: "changeset.update_tags",
		Method:    http.MethodPut,
		Endpoint:  endpoint("changeset/%d", id),
		Body:      wire.XML(wire.Wrap("osm", "changeset", ChangesetCreate{Tags: tags})),
		Options:   VersionedAuth,
	}, changesetShape)
}

// Close closes an open changeset
func (a ChangesetsAPI) Close(ctx context.Context, id int64) error {
	_, err := Do(ctx, a.client, Request{
		Operation: "changeset.close",
		Method:    http.MethodPut,
		Endpoint:  endpoint("changeset/%d/close", id),
		Options:   VersionedAuth,
	}, wire.Empty())
	return err
}

// Download returns the edits of a changeset
func (a ChangesetsAPI) Download(ctx context.Context, id int64) (OsmChange, error) {
	return Do(ctx, a.client, Request{
		Operation: "changeset.download",
		Method:    http.MethodGet,
		Endpoint:  endpoint("changeset/%d/download", id),
		Options:   Versioned,
	}, wire.Document[OsmChange]())
}

// Upload applies change inside the open changeset id and returns the
// server's id and version assignments
func (a ChangesetsAPI) Upload(ctx context.Context, id int64, change OsmChange) ([]DiffEntry, error) {
	return Do(ctx, a.client, Request{
		Operation: "changeset.upload",
		Method:    http.MethodPost,
		Endpoint:  endpoint("changeset/%d/upload", id),
		Body:      wire.XML(change),
		Options:   VersionedAuth,
	}, wire.List(diffVariants...))
}

type changesetComment struct {
	Text string `schema:"text" validate:"required"`
}

// Comment adds a comment to a closed changeset's discussion
func (a ChangesetsAPI) Comment(ctx context.Context, id int64, text string) error {
	_, err := Do(ctx, a.client, Request{
		Operation: "changeset.comment",
		Method:    http.MethodPost,
		Endpoint:  endpoint("changeset/%d/comment", id),
		Body:      wire.Form(changesetComment{Text: text}),
		Options:   VersionedAuth,
	}, wire.Empty())
	return err
}

// Subscribe subscribes the authenticated user to a changeset's discussion
func (a ChangesetsAPI) Subscribe(ctx context.Context, id int64) (Changeset, error) {
	return Do(ctx, a.client, Request{
		Operation: "changeset.subscribe",
		Method:    http.MethodPost,
		Endpoint:  endpoint("changeset/%d/subscribe", id),
		Options:   VersionedAuth,
	}, changesetShape)
}

// Unsubscribe reverses Subscribe
func (a ChangesetsAPI) Unsubscribe(ctx context.Context, id int64) (Changeset, error) {
	return Do(ctx, a.client, Request{
		Operation: "changeset.unsubscribe",
		Method:    http.MethodPost,
		Endpoint:  endpoint("changeset/%d/unsubscribe", id),
		Options:   VersionedAuth,
	}, changesetShape)
}

// ChangesetQuery filters a changeset search. Unset fields are left out.
// CreatedBefore needs ClosedAfter; on its own it cannot be expressed.
type ChangesetQuery struct {
	BBox          *BoundingBox
	UserID        *int64
	DisplayName   string
	ClosedAfter   *time.Time
	CreatedBefore *time.Time
	Open          *bool
	Closed        *bool
	ChangesetIDs  []int64
}

type changesetQueryRecord struct {
	BBox        string `schema:"bbox,omitempty"`
	User        string `schema:"user,omitempty"`
	DisplayName string `schema:"display_name,omitempty"`
	Time        string `schema:"time,omitempty"`
	Open        string `schema:"open,omitempty"`
	Closed      string `schema:"closed,omitempty"`
	Changesets  string `schema:"changesets,omitempty"`
}

// Encode validates q and lowers it to a query string
func (q ChangesetQuery) Encode() (string, error) {
	if err := core.Validate(core.CodeQueryEncode, q); err != nil {
		return "", err
	}

	timeRange, err := query.TimeRange(q.ClosedAfter, q.CreatedBefore)
	if err != nil {
		return "", err
	}

	record := changesetQueryRecord{
		DisplayName: q.DisplayName,
		Time:        timeRange,
		Open:        query.Bool(q.Open),
		Closed:      query.Bool(q.Closed),
		Changesets:  query.IDList(q.ChangesetIDs),
	}
	if q.BBox != nil {
		record.BBox = q.BBox.String()
	}
	if q.UserID != nil {
		record.User = query.IDList([]int64{*q.UserID})
	}
	return query.Encode(record)
}

// Query searches changesets, newest first
func (a ChangesetsAPI) Query(ctx context.Context, q ChangesetQuery) ([]Changeset, error) {
	encoded, err := q.Encode()
	if err != nil {
		return nil, err
	}
	return Do(ctx, a.client, Request{
		Operation: "changesets.query",
		Method:    http.MethodGet,
		Endpoint:  query.Join("changesets", encoded),
		Options:   Versioned,
	}, wire.List(wire.Tag[Changeset]("changeset")))
}

// ChangeAction is the kind of an osmChange block
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionModify ChangeAction = "modify"
	ActionDelete ChangeAction = "delete"
)

// Change is one create, modify or delete block of an osmChange document
type Change struct {
	Action   ChangeAction
	Elements []Element
	// IfUnused makes a delete block skip elements still in use
	IfUnused bool
}

// UnmarshalXML implements xml.Unmarshaler
func (c *Change) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	c.Action = ChangeAction(start.Name.Local)
	for _, attr := range start.Attr {
		if attr.Name.Local == "if-unused" {
			c.IfUnused = attr.Value != "false"
		}
	}
	return wire.Walk(d, start, elementVariants, func(e Element) bool {
		c.Elements = append(c.Elements, e)
		return true
	})
}

// MarshalXML implements xml.Marshaler
func (c Change) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: string(c.Action)}}
	if c.IfUnused {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "if-unused"}, Value: "true"})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, e := range c.Elements {
		if err := enc.EncodeElement(e, xml.StartElement{Name: xml.Name{Local: e.ElementType()}}); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// OsmChange is an ordered list of change blocks
type OsmChange struct {
	Version   string
	Generator string
	Changes   []Change
}

var changeVariants = []wire.Variant[Change]{
	wire.Tag[Change](string(ActionCreate)),
	wire.Tag[Change](string(ActionModify)),
	wire.Tag[Change](string(ActionDelete)),
}

// UnmarshalXML implements xml.Unmarshaler
func (o *OsmChange) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "version":
			o.Version = attr.Value
		case "generator":
			o.Generator = attr.Value
		}
	}
	return wire.Walk(d, start, changeVariants, func(c Change) bool {
		o.Changes = append(o.Changes, c)
		return true
	})
}

// MarshalXML implements xml.Marshaler
func (o OsmChange) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	env := wire.Envelope{Root: "osmChange"}
	if o.Version != "" {
		env.Attr = append(env.Attr, xml.Attr{Name: xml.Name{Local: "version"}, Value: o.Version})
	}
	if o.Generator != "" {
		env.Attr = append(env.Attr, xml.Attr{Name: xml.Name{Local: "generator"}, Value: o.Generator})
	}
	for _, c := range o.Changes {
		env.Children = append(env.Children, wire.Child{Name: string(c.Action), Value: c})
	}
	return env.MarshalXML(enc, xml.StartElement{})
}

// DiffEntry maps one uploaded element to its new id and version. Deleted
// elements have neither.
type DiffEntry struct {
	Type       string `xml:"-"`
	OldID      int64  `xml:"old_id,attr"`
	NewID      *int64 `xml:"new_id,attr,omitempty"`
	NewVersion *int   `xml:"new_version,attr,omitempty"`
}

func diffVariant(kind string) wire.Variant[DiffEntry] {
	return wire.Into(kind, func(e *DiffEntry) DiffEntry {
		e.Type = kind
		return *e
	})
}

var diffVariants = []wire.Variant[DiffEntry]{
	diffVariant(TypeNode),
	diffVariant(TypeWay),
	diffVariant(TypeRelation),
}
