package osm

import (
	"context"
	"net/http"
	"strconv"

	"github.com/NERVsystems/osmapi/pkg/core"
	"github.com/NERVsystems/osmapi/pkg/query"
	"github.com/NERVsystems/osmapi/pkg/wire"
)

// TrackPoint is a GPX <trkpt>
type TrackPoint struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Time string  `xml:"time,omitempty"`
}

// TrackSegment is a GPX <trkseg>
type TrackSegment struct {
	Points []TrackPoint `xml:"trkpt"`
}

// Track is a GPX <trk>. GPX documents use the GPX namespace; fields match
// on local names only.
type Track struct {
	Name        string         `xml:"name,omitempty"`
	Comment     string         `xml:"cmt,omitempty"`
	Description string         `xml:"desc,omitempty"`
	URL         string         `xml:"url,omitempty"`
	Source      string         `xml:"src,omitempty"`
	Number      *int           `xml:"number,omitempty"`
	Segments    []TrackSegment `xml:"trkseg"`
}

// GPXFile is the metadata of an uploaded trace
type GPXFile struct {
	ID          int64    `xml:"id,attr"`
	Name        string   `xml:"name,attr"`
	Lat         float64  `xml:"lat,attr"`
	Lon         float64  `xml:"lon,attr"`
	User        string   `xml:"user,attr"`
	Visibility  string   `xml:"visibility,attr"`
	Pending     bool     `xml:"pending,attr"`
	Timestamp   string   `xml:"timestamp,attr"`
	Description string   `xml:"description"`
	Tags        []string `xml:"tag"`
}

var (
	trackListShape = wire.List(wire.Tag[Track]("trk"))
	gpxFileShape   = wire.Single(wire.Tag[GPXFile]("gpx_file"))
)

type trackpointsRecord struct {
	BBox string `schema:"bbox"`
	Page string `schema:"page,omitempty"`
}

// GPSAPI is the GPS traces façade
type GPSAPI struct {
	client *Client
}

// GetByBoundingBox returns one page of public track points inside bbox.
// A nil page asks for the first page.
func (a GPSAPI) GetByBoundingBox(ctx context.Context, bbox BoundingBox, page *int) ([]Track, error) {
	if err := core.Validate(core.CodeQueryEncode, bbox); err != nil {
		return nil, err
	}
	if page != nil && *page < 0 {
		return nil, core.Errorf(core.CodeQueryEncode, "page must not be negative, got %d", *page)
	}

	ep, err := query.Build("trackpoints", trackpointsRecord{
		BBox: bbox.String(),
		Page: query.Int(page),
	})
	if err != nil {
		return nil, err
	}
	return Do(ctx, a.client, Request{
		Operation: "gps.trackpoints",
		Method:    http.MethodGet,
		Endpoint:  ep,
		Options:   Versioned,
	}, trackListShape)
}

// Delete removes one of the authenticated user's traces
func (a GPSAPI) Delete(ctx context.Context, id int64) error {
	_, err := Do(ctx, a.client, Request{
		Operation: "gps.delete",
		Method:    http.MethodDelete,
		Endpoint:  "gpx/" + strconv.FormatInt(id, 10),
		Options:   VersionedAuth,
	}, wire.Empty())
	return err
}

// Details fetches a trace's metadata
func (a GPSAPI) Details(ctx context.Context, id int64) (GPXFile, error) {
	return Do(ctx, a.client, Request{
		Operation: "gps.details",
		Method:    http.MethodGet,
		Endpoint:  endpoint("gpx/%d/details", id),
		Options:   VersionedAuth,
	}, gpxFileShape)
}

// Data downloads a trace's tracks
func (a GPSAPI) Data(ctx context.Context, id int64) ([]Track, error) {
	return Do(ctx, a.client, Request{
		Operation: "gps.data",
		Method:    http.MethodGet,
		Endpoint:  endpoint("gpx/%d/data", id),
		Options:   VersionedAuth,
	}, trackListShape)
}

// Mine lists the authenticated user's traces
func (a GPSAPI) Mine(ctx context.Context) ([]GPXFile, error) {
	return Do(ctx, a.client, Request{
		Operation: "gps.mine",
		Method:    http.MethodGet,
		Endpoint:  "user/gpx_files",
		Options:   VersionedAuth,
	}, wire.List(wire.Tag[GPXFile]("gpx_file")))
}
