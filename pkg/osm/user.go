package osm

import (
	"context"
	"encoding/xml"
	"net/http"
	"sort"

	"github.com/NERVsystems/osmapi/pkg/core"
	"github.com/NERVsystems/osmapi/pkg/query"
	"github.com/NERVsystems/osmapi/pkg/wire"
)

// User is a public user profile. The private fields (home, languages,
// messages) are only present in the authenticated user's own details.
type User struct {
	ID               int64             `xml:"id,attr"`
	DisplayName      string            `xml:"display_name,attr"`
	AccountCreated   string            `xml:"account_created,attr"`
	Description      string            `xml:"description"`
	ContributorTerms *ContributorTerms `xml:"contributor-terms"`
	Image            *Image            `xml:"img"`
	Roles            Roles             `xml:"roles"`
	Changesets       Counter           `xml:"changesets"`
	Traces           Counter           `xml:"traces"`
	Blocks           Blocks            `xml:"blocks"`
	Home             *Home             `xml:"home"`
	Languages        []string          `xml:"languages>lang"`
	Messages         *Messages         `xml:"messages"`
}

// ContributorTerms records the user's agreement to the contributor terms
type ContributorTerms struct {
	Agreed bool  `xml:"agreed,attr"`
	PD     *bool `xml:"pd,attr"`
}

// Image is the user's avatar
type Image struct {
	Href string `xml:"href,attr"`
}

// Counter is an element whose only content is a count attribute
type Counter struct {
	Count int `xml:"count,attr"`
}

// BlockCounter counts blocks, of which Active are still in force
type BlockCounter struct {
	Count  int `xml:"count,attr"`
	Active int `xml:"active,attr"`
}

// Blocks holds the blocks a user has received and, for moderators, issued
type Blocks struct {
	Received BlockCounter  `xml:"received"`
	Issued   *BlockCounter `xml:"issued"`
}

// Home is the user's home location
type Home struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Zoom int     `xml:"zoom,attr"`
}

// MessageCounter counts received messages
type MessageCounter struct {
	Count  int `xml:"count,attr"`
	Unread int `xml:"unread,attr"`
}

// Messages summarizes the user's inbox and outbox
type Messages struct {
	Received MessageCounter `xml:"received"`
	Sent     Counter        `xml:"sent"`
}

// Roles are the names of the empty child elements of <roles>, such as
// "moderator" or "administrator"
type Roles []string

// UnmarshalXML implements xml.Unmarshaler
func (r *Roles) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			*r = append(*r, t.Name.Local)
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// Has reports whether role is among r
func (r Roles) Has(role string) bool {
	for _, name := range r {
		if name == role {
			return true
		}
	}
	return false
}

// Preferences are the authenticated user's key/value preferences
type Preferences map[string]string

type preference struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

type preferenceList struct {
	Items []preference `xml:"preference"`
}

// list returns the preferences sorted by key so encoding is stable
func (p Preferences) list() preferenceList {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]preference, len(keys))
	for i, k := range keys {
		items[i] = preference{K: k, V: p[k]}
	}
	return preferenceList{Items: items}
}

func preferencesFromList(l *preferenceList) Preferences {
	p := make(Preferences, len(l.Items))
	for _, item := range l.Items {
		p[item.K] = item.V
	}
	return p
}

var (
	userShape     = wire.Single(wire.Tag[User]("user"))
	userListShape = wire.List(wire.Tag[User]("user"))
)

// UsersAPI is the user façade
type UsersAPI struct {
	client *Client
}

// Get fetches a public profile
func (a UsersAPI) Get(ctx context.Context, id int64) (User, error) {
	return Do(ctx, a.client, Request{
		Operation: "user.get",
		Method:    http.MethodGet,
		Endpoint:  endpoint("user/%d", id),
		Options:   Versioned,
	}, userShape)
}

type usersRecord struct {
	Users string `schema:"users,omitempty"`
}

// GetMany fetches several public profiles in one call
func (a UsersAPI) GetMany(ctx context.Context, ids ...int64) ([]User, error) {
	if len(ids) == 0 {
		return nil, core.NewError(core.CodeQueryEncode, "at least one user id is required")
	}
	ep, err := query.Build("users", usersRecord{Users: query.IDList(ids)})
	if err != nil {
		return nil, err
	}
	return Do(ctx, a.client, Request{
		Operation: "user.get_many",
		Method:    http.MethodGet,
		Endpoint:  ep,
		Options:   Versioned,
	}, userListShape)
}

// Details returns the authenticated user's own profile
func (a UsersAPI) Details(ctx context.Context) (User, error) {
	return Do(ctx, a.client, Request{
		Operation: "user.details",
		Method:    http.MethodGet,
		Endpoint:  "user/details",
		Options:   VersionedAuth,
	}, userShape)
}

// Preferences returns the authenticated user's preferences
func (a UsersAPI) Preferences(ctx context.Context) (Preferences, error) {
	return Do(ctx, a.client, Request{
		Operation: "user.preferences",
		Method:    http.MethodGet,
		Endpoint:  "user/preferences",
		Options:   VersionedAuth,
	}, wire.Single(wire.Into("preferences", preferencesFromList)))
}

// UpdatePreferences replaces every preference of the authenticated user
func (a UsersAPI) UpdatePreferences(ctx context.Context, prefs Preferences) error {
	_, err := Do(ctx, a.client, Request{
		Operation: "user.update_preferences",
		Method:    http.MethodPut,
		Endpoint:  "user/preferences",
		Body:      wire.XML(wire.Wrap("osm", "preferences", prefs.list())),
		Options:   VersionedAuth,
	}, wire.Empty())
	return err
}

type permissionList struct {
	Items []struct {
		Name string `xml:"name,attr"`
	} `xml:"permission"`
}

// PermissionsAPI is the permissions façade
type PermissionsAPI struct {
	client *Client
}

// Get returns the permission names granted to the client's credentials.
// Anonymous clients get an empty list from the server, so credentials are
// only sent when present.
func (a PermissionsAPI) Get(ctx context.Context) ([]string, error) {
	opts := Versioned
	opts.UseAuth = a.client.HasCredentials()

	return Do(ctx, a.client, Request{
		Operation: "permissions.get",
		Method:    http.MethodGet,
		Endpoint:  "permissions",
		Options:   opts,
	}, wire.Single(wire.Into("permissions", func(l *permissionList) []string {
		names := make([]string, len(l.Items))
		for i, p := range l.Items {
			names[i] = p.Name
		}
		return names
	})))
}
