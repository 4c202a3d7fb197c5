package osm

import (
	"context"
	"encoding/xml"
	"net/http"

	"github.com/NERVsystems/osmapi/pkg/core"
	"github.com/NERVsystems/osmapi/pkg/query"
	"github.com/NERVsystems/osmapi/pkg/wire"
)

// Service states reported by the capabilities status element
const (
	StateOnline   = "online"
	StateReadOnly = "readonly"
	StateOffline  = "offline"
)

// VersionRange is the inclusive range of API versions a server accepts
type VersionRange struct {
	Minimum string `xml:"minimum,attr"`
	Maximum string `xml:"maximum,attr"`
}

// ServiceStatus is the state of the server's database, API and GPX store
type ServiceStatus struct {
	Database string `xml:"database,attr"`
	API      string `xml:"api,attr"`
	GPX      string `xml:"gpx,attr"`
}

// Writable reports whether edits are currently accepted
func (s ServiceStatus) Writable() bool {
	return s.API == StateOnline && s.Database == StateOnline
}

// Capabilities are the server's limits
type Capabilities struct {
	Versions VersionRange `xml:"version"`
	Area     struct {
		Maximum float64 `xml:"maximum,attr"`
	} `xml:"area"`
	NoteArea struct {
		Maximum float64 `xml:"maximum,attr"`
	} `xml:"note_area"`
	Tracepoints struct {
		PerPage int `xml:"per_page,attr"`
	} `xml:"tracepoints"`
	Waynodes struct {
		Maximum int `xml:"maximum,attr"`
	} `xml:"waynodes"`
	RelationMembers struct {
		Maximum int `xml:"maximum,attr"`
	} `xml:"relationmembers"`
	Changesets struct {
		MaximumElements int `xml:"maximum_elements,attr"`
	} `xml:"changesets"`
	Timeout struct {
		Seconds int `xml:"seconds,attr"`
	} `xml:"timeout"`
	Status ServiceStatus `xml:"status"`
}

// Blacklist is one imagery URL pattern editors must not use
type Blacklist struct {
	Regex string `xml:"regex,attr"`
}

// Policy holds the server's usage policy
type Policy struct {
	Imagery struct {
		Blacklist []Blacklist `xml:"blacklist"`
	} `xml:"imagery"`
}

// CapabilitiesAndPolicy is the capabilities document
type CapabilitiesAndPolicy struct {
	XMLName      xml.Name     `xml:"osm"`
	Capabilities Capabilities `xml:"api"`
	Policy       Policy       `xml:"policy"`
}

// CapabilitiesAPI is the capabilities façade
type CapabilitiesAPI struct {
	client *Client
}

// Get fetches the server's limits and policy
func (a CapabilitiesAPI) Get(ctx context.Context) (CapabilitiesAndPolicy, error) {
	return Do(ctx, a.client, Request{
		Operation: "capabilities.get",
		Method:    http.MethodGet,
		Endpoint:  "capabilities",
		Options:   Unversioned,
	}, wire.Document[CapabilitiesAndPolicy]())
}

// VersionsAPI is the versions façade
type VersionsAPI struct {
	client *Client
}

type versionList struct {
	Versions []string `xml:"version"`
}

// Get lists the API versions the server supports
func (a VersionsAPI) Get(ctx context.Context) ([]string, error) {
	lists, err := Do(ctx, a.client, Request{
		Operation: "versions.get",
		Method:    http.MethodGet,
		Endpoint:  "versions",
		Options:   Unversioned,
	}, wire.List(wire.Tag[versionList]("api")))
	if err != nil {
		return nil, err
	}

	versions := []string{}
	for _, l := range lists {
		versions = append(versions, l.Versions...)
	}
	return versions, nil
}

// MapAPI is the map data façade
type MapAPI struct {
	client *Client
}

type mapRecord struct {
	BBox string `schema:"bbox"`
}

// Get downloads every element inside bbox
func (a MapAPI) Get(ctx context.Context, bbox BoundingBox) (Map, error) {
	if err := core.Validate(core.CodeQueryEncode, bbox); err != nil {
		return Map{}, err
	}
	ep, err := query.Build("map", mapRecord{BBox: bbox.String()})
	if err != nil {
		return Map{}, err
	}
	return Do(ctx, a.client, Request{
		Operation: "map.get",
		Method:    http.MethodGet,
		Endpoint:  ep,
		Options:   Versioned,
	}, wire.Document[Map]())
}
