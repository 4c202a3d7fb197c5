package osm

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/NERVsystems/osmapi/pkg/core"
	"github.com/NERVsystems/osmapi/pkg/query"
	"github.com/NERVsystems/osmapi/pkg/wire"
)

// Note is a map note. Its position is given as attributes, everything else
// as child elements.
type Note struct {
	Lat         float64       `xml:"lat,attr"`
	Lon         float64       `xml:"lon,attr"`
	ID          int64         `xml:"id"`
	URL         string        `xml:"url"`
	CommentURL  string        `xml:"comment_url,omitempty"`
	CloseURL    string        `xml:"close_url,omitempty"`
	ReopenURL   string        `xml:"reopen_url,omitempty"`
	DateCreated string        `xml:"date_created"`
	DateClosed  *string       `xml:"date_closed,omitempty"`
	Status      string        `xml:"status"`
	Comments    []NoteComment `xml:"comments>comment"`
}

// NoteComment is one entry of a note's thread. Anonymous comments have no
// user fields.
type NoteComment struct {
	Date    string `xml:"date"`
	UID     *int64 `xml:"uid,omitempty"`
	User    string `xml:"user,omitempty"`
	UserURL string `xml:"user_url,omitempty"`
	Action  string `xml:"action"`
	Text    string `xml:"text"`
	HTML    string `xml:"html"`
}

// NoteContent is the form payload for opening a note
type NoteContent struct {
	Lat  float64 `schema:"lat" validate:"gte=-90,lte=90"`
	Lon  float64 `schema:"lon" validate:"gte=-180,lte=180"`
	Text string  `schema:"text" validate:"required"`
}

// NoteSort orders search results
type NoteSort string

const (
	SortCreatedAt NoteSort = "created_at"
	SortUpdatedAt NoteSort = "updated_at"
)

// NoteOrder is the direction of NoteSort
type NoteOrder string

const (
	OrderNewest NoteOrder = "newest"
	OrderOldest NoteOrder = "oldest"
)

// NoteListOptions limits a bounding box listing. Closed is the number of
// days a closed note stays visible; -1 includes every closed note.
type NoteListOptions struct {
	Limit  *int `validate:"omitempty,gte=1,lte=10000"`
	Closed *int `validate:"omitempty,gte=-1"`
}

type noteListRecord struct {
	BBox   string `schema:"bbox,omitempty"`
	Limit  string `schema:"limit,omitempty"`
	Closed string `schema:"closed,omitempty"`
}

// NoteSearchOptions filters a full text note search
type NoteSearchOptions struct {
	Query       string
	Limit       *int `validate:"omitempty,gte=1,lte=10000"`
	Closed      *int `validate:"omitempty,gte=-1"`
	DisplayName string
	UserID      *int64
	From        *time.Time
	To          *time.Time
	Sort        NoteSort  `validate:"omitempty,oneof=created_at updated_at"`
	Order       NoteOrder `validate:"omitempty,oneof=newest oldest"`
}

type noteSearchRecord struct {
	Q           string `schema:"q,omitempty"`
	Limit       string `schema:"limit,omitempty"`
	Closed      string `schema:"closed,omitempty"`
	DisplayName string `schema:"display_name,omitempty"`
	User        string `schema:"user,omitempty"`
	From        string `schema:"from,omitempty"`
	To          string `schema:"to,omitempty"`
	Sort        string `schema:"sort,omitempty"`
	Order       string `schema:"order,omitempty"`
}

// Encode validates o and lowers it to a query string
func (o NoteSearchOptions) Encode() (string, error) {
	if err := core.Validate(core.CodeQueryEncode, o); err != nil {
		return "", err
	}

	record := noteSearchRecord{
		Q:           o.Query,
		Limit:       query.Int(o.Limit),
		Closed:      query.Int(o.Closed),
		DisplayName: o.DisplayName,
		Sort:        string(o.Sort),
		Order:       string(o.Order),
	}
	if o.UserID != nil {
		record.User = strconv.FormatInt(*o.UserID, 10)
	}
	if o.From != nil {
		record.From = query.FormatTime(*o.From)
	}
	if o.To != nil {
		record.To = query.FormatTime(*o.To)
	}
	return query.Encode(record)
}

var (
	noteShape     = wire.Single(wire.Tag[Note]("note"))
	noteListShape = wire.List(wire.Tag[Note]("note"))
)

// NotesAPI is the notes façade
type NotesAPI struct {
	client *Client
}

// GetByBoundingBox lists the notes inside bbox
func (a NotesAPI) GetByBoundingBox(ctx context.Context, bbox BoundingBox, opts NoteListOptions) ([]Note, error) {
	if err := core.Validate(core.CodeQueryEncode, bbox); err != nil {
		return nil, err
	}
	if err := core.Validate(core.CodeQueryEncode, opts); err != nil {
		return nil, err
	}

	ep, err := query.Build("notes", noteListRecord{
		BBox:   bbox.String(),
		Limit:  query.Int(opts.Limit),
		Closed: query.Int(opts.Closed),
	})
	if err != nil {
		return nil, err
	}

	return Do(ctx, a.client, Request{
		Operation: "notes.list",
		Method:    http.MethodGet,
		Endpoint:  ep,
		Options:   Versioned,
	}, noteListShape)
}

// Get fetches a single note
func (a NotesAPI) Get(ctx context.Context, id int64) (Note, error) {
	return Do(ctx, a.client, Request{
		Operation: "notes.get",
		Method:    http.MethodGet,
		Endpoint:  endpoint("notes/%d", id),
		Options:   Versioned,
	}, noteShape)
}

// Create opens a note. Anonymous clients may open notes, so credentials
// are only sent when the client has them.
func (a NotesAPI) Create(ctx context.Context, content NoteContent) (Note, error) {
	opts := Versioned
	opts.UseAuth = a.client.HasCredentials()

	return Do(ctx, a.client, Request{
		Operation: "notes.create",
		Method:    http.MethodPost,
		Endpoint:  "notes",
		Body:      wire.Form(content),
		Options:   opts,
	}, noteShape)
}

// Comment adds a comment to an open note
func (a NotesAPI) Comment(ctx context.Context, id int64, text string) (Note, error) {
	if text == "" {
		return Note{}, core.NewError(core.CodeEncode, "note comment text is required")
	}
	return a.action(ctx, "comment", id, text)
}

// Close closes a note with an optional comment
func (a NotesAPI) Close(ctx context.Context, id int64, text string) (Note, error) {
	return a.action(ctx, "close", id, text)
}

// Reopen reopens a closed note with an optional comment
func (a NotesAPI) Reopen(ctx context.Context, id int64, text string) (Note, error) {
	return a.action(ctx, "reopen", id, text)
}

func (a NotesAPI) action(ctx context.Context, action string, id int64, text string) (Note, error) {
	body := wire.None()
	if text != "" {
		body = wire.RawForm([]byte(url.Values{"text": {text}}.Encode()))
	}

	return Do(ctx, a.client, Request{
		Operation: "notes." + action,
		Method:    http.MethodPost,
		Endpoint:  endpoint("notes/%d/%s", id, action),
		Body:      body,
		Options:   VersionedAuth,
	}, noteShape)
}

// Search runs a note search
func (a NotesAPI) Search(ctx context.Context, opts NoteSearchOptions) ([]Note, error) {
	encoded, err := opts.Encode()
	if err != nil {
		return nil, err
	}
	return Do(ctx, a.client, Request{
		Operation: "notes.search",
		Method:    http.MethodGet,
		Endpoint:  query.Join("notes/search", encoded),
		Options:   Versioned,
	}, noteListShape)
}

// FeedItem is one entry of the notes GeoRSS feed. Namespaced fields such
// as geo:lat and dc:creator match on their local names.
type FeedItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        string  `xml:"guid"`
	Description string  `xml:"description"`
	Creator     string  `xml:"creator,omitempty"`
	PubDate     string  `xml:"pubDate"`
	Lat         float64 `xml:"lat"`
	Lon         float64 `xml:"long"`
}

// noteFeed is the RSS document. The root name is checked, so a response
// that is not a feed fails to decode instead of yielding no items.
type noteFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Items   []FeedItem `xml:"channel>item"`
}

// FeedByBoundingBox returns the recent note activity inside bbox
func (a NotesAPI) FeedByBoundingBox(ctx context.Context, bbox BoundingBox) ([]FeedItem, error) {
	if err := core.Validate(core.CodeQueryEncode, bbox); err != nil {
		return nil, err
	}
	ep, err := query.Build("notes/feed", noteListRecord{BBox: bbox.String()})
	if err != nil {
		return nil, err
	}
	feed, err := Do(ctx, a.client, Request{
		Operation: "notes.feed",
		Method:    http.MethodGet,
		Endpoint:  ep,
		Options:   Versioned,
	}, wire.Document[noteFeed]())
	if err != nil {
		return nil, err
	}
	if feed.Items == nil {
		return []FeedItem{}, nil
	}
	return feed.Items, nil
}
