package osm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/NERVsystems/osmapi/pkg/core"
)

const noteXML = `<osm version="0.6">
  <note lon="0.1" lat="51.5">
    <id>42</id>
    <url>https://api.example.org/api/0.6/notes/42</url>
    <comment_url>https://api.example.org/api/0.6/notes/42/comment</comment_url>
    <close_url>https://api.example.org/api/0.6/notes/42/close</close_url>
    <date_created>2024-01-01 10:00:00 UTC</date_created>
    <status>open</status>
    <comments>
      <comment>
        <date>2024-01-01 10:00:00 UTC</date>
        <action>opened</action>
        <text>Bench missing</text>
        <html>&lt;p&gt;Bench missing&lt;/p&gt;</html>
      </comment>
      <comment>
        <date>2024-01-02 10:00:00 UTC</date>
        <uid>7</uid>
        <user>alice</user>
        <user_url>https://www.example.org/user/alice</user_url>
        <action>commented</action>
        <text>Confirmed</text>
        <html>&lt;p&gt;Confirmed&lt;/p&gt;</html>
      </comment>
    </comments>
  </note>
</osm>`

func TestGetNote(t *testing.T) {
	c := newTestClient(t, core.NoCredentials(), respondXML(http.StatusOK, noteXML))

	note, err := c.Notes().Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if note.ID != 42 || note.Lat != 51.5 || note.Lon != 0.1 || note.Status != "open" {
		t.Errorf("unexpected note %+v", note)
	}
	if note.DateClosed != nil {
		t.Error("open note must have no close date")
	}
	if len(note.Comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(note.Comments))
	}
	if note.Comments[0].UID != nil || note.Comments[0].User != "" {
		t.Errorf("anonymous comment has user fields: %+v", note.Comments[0])
	}
	if note.Comments[1].UID == nil || *note.Comments[1].UID != 7 || note.Comments[1].Text != "Confirmed" {
		t.Errorf("unexpected comment %+v", note.Comments[1])
	}
}

func TestNotesByBoundingBox(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, core.NoCredentials(), func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, noteXML)
	})

	bbox := BoundingBox{Left: -0.5, Bottom: 51, Right: 0.5, Top: 52}
	notes, err := c.Notes().GetByBoundingBox(context.Background(), bbox, NoteListOptions{Limit: intPtr(10), Closed: intPtr(-1)})
	if err != nil {
		t.Fatalf("GetByBoundingBox: %v", err)
	}
	if gotQuery != "bbox=-0.5%2C51%2C0.5%2C52&closed=-1&limit=10" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(notes) != 1 {
		t.Errorf("expected one note, got %d", len(notes))
	}

	_, err = c.Notes().GetByBoundingBox(context.Background(), bbox, NoteListOptions{Limit: intPtr(0)})
	if !errors.Is(err, core.ErrQueryEncode) {
		t.Errorf("expected QUERY_ENCODE_ERROR for limit 0, got %v", err)
	}
}

func TestCreateNote(t *testing.T) {
	tests := []struct {
		name     string
		creds    core.Credentials
		wantAuth bool
	}{
		{"anonymous", core.NoCredentials(), false},
		{"authenticated", core.BasicAuth("user", "secret"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth bool
			var gotText, gotLat string
			c := newTestClient(t, tt.creds, func(w http.ResponseWriter, r *http.Request) {
				_, _, gotAuth = r.BasicAuth()
				r.ParseForm()
				gotText = r.PostForm.Get("text")
				gotLat = r.PostForm.Get("lat")
				io.WriteString(w, noteXML)
			})

			_, err := c.Notes().Create(context.Background(), NoteContent{Lat: 51.5, Lon: 0.1, Text: "Bench missing"})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if gotAuth != tt.wantAuth {
				t.Errorf("auth sent = %v, want %v", gotAuth, tt.wantAuth)
			}
			if gotText != "Bench missing" || gotLat != "51.5" {
				t.Errorf("unexpected form text=%q lat=%q", gotText, gotLat)
			}
		})
	}
}

func TestCreateNoteValidation(t *testing.T) {
	c := newTestClient(t, core.NoCredentials(), respondXML(http.StatusOK, noteXML))

	for _, content := range []NoteContent{
		{Lat: 91, Lon: 0, Text: "x"},
		{Lat: 0, Lon: 0, Text: ""},
	} {
		if _, err := c.Notes().Create(context.Background(), content); !errors.Is(err, core.ErrEncode) {
			t.Errorf("%+v: expected ENCODE_ERROR, got %v", content, err)
		}
	}
}

func TestNoteActions(t *testing.T) {
	var gotPath, gotBody, gotType string
	c := newTestClient(t, core.BasicAuth("user", "secret"), func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotType = r.Header.Get("Content-Type")
		io.WriteString(w, noteXML)
	})
	ctx := context.Background()

	if _, err := c.Notes().Comment(ctx, 42, "fixed & verified"); err != nil {
		t.Fatalf("Comment: %v", err)
	}
	if gotPath != "/api/0.6/notes/42/comment" || gotBody != "text=fixed+%26+verified" {
		t.Errorf("comment sent %s %q", gotPath, gotBody)
	}

	if _, err := c.Notes().Close(ctx, 42, ""); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if gotPath != "/api/0.6/notes/42/close" || gotBody != "" || gotType != "" {
		t.Errorf("close without text sent %s %q %q", gotPath, gotBody, gotType)
	}

	if _, err := c.Notes().Reopen(ctx, 42, "still missing"); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if gotPath != "/api/0.6/notes/42/reopen" || gotBody != "text=still+missing" {
		t.Errorf("reopen sent %s %q", gotPath, gotBody)
	}

	if _, err := c.Notes().Comment(ctx, 42, ""); !errors.Is(err, core.ErrEncode) {
		t.Errorf("expected ENCODE_ERROR for an empty comment, got %v", err)
	}
}

func TestNoteSearchEncode(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	got, err := NoteSearchOptions{
		Query:  "bench",
		Limit:  intPtr(5),
		UserID: int64Ptr(7),
		From:   &from,
		Sort:   SortUpdatedAt,
		Order:  OrderOldest,
	}.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "from=2024-03-01T00%3A00%3A00Z&limit=5&order=oldest&q=bench&sort=updated_at&user=7"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := (NoteSearchOptions{Sort: "random"}).Encode(); !errors.Is(err, core.ErrQueryEncode) {
		t.Errorf("expected QUERY_ENCODE_ERROR for an unknown sort, got %v", err)
	}
}

func TestSearchNotes(t *testing.T) {
	var gotPath string
	c := newTestClient(t, core.NoCredentials(), func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		io.WriteString(w, noteXML)
	})

	notes, err := c.Notes().Search(context.Background(), NoteSearchOptions{Query: "bench"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotPath != "/api/0.6/notes/search?q=bench" {
		t.Errorf("request = %s", gotPath)
	}
	if len(notes) != 1 || notes[0].ID != 42 {
		t.Errorf("unexpected notes %+v", notes)
	}
}

const noteFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:geo="http://www.w3.org/2003/01/geo/wgs84_pos#" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>OpenStreetMap Notes</title>
    <description>OpenStreetMap Notes</description>
    <link>https://www.example.org/</link>
    <item>
      <title>new note (near Epping)</title>
      <link>https://www.example.org/note/42#map=17/51.5/0.1</link>
      <guid>https://api.example.org/api/0.6/notes/42</guid>
      <description>Bench missing</description>
      <dc:creator>alice</dc:creator>
      <pubDate>Mon, 01 Jan 2024 10:00:00 +0000</pubDate>
      <geo:lat>51.5</geo:lat>
      <geo:long>0.1</geo:long>
    </item>
    <item>
      <title>closed note (near Loughton)</title>
      <link>https://www.example.org/note/43#map=17/51.6/0.05</link>
      <guid>https://api.example.org/api/0.6/notes/43</guid>
      <description>Fixed</description>
      <pubDate>Tue, 02 Jan 2024 10:00:00 +0000</pubDate>
      <geo:lat>51.6</geo:lat>
      <geo:long>0.05</geo:long>
    </item>
  </channel>
</rss>`

func TestNoteFeed(t *testing.T) {
	var gotPath string
	c := newTestClient(t, core.NoCredentials(), func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, noteFeedXML)
	})

	items, err := c.Notes().FeedByBoundingBox(context.Background(), BoundingBox{Left: 1, Bottom: 2, Right: 3, Top: 4})
	if err != nil {
		t.Fatalf("FeedByBoundingBox: %v", err)
	}
	if gotPath != "/api/0.6/notes/feed?bbox=1%2C2%2C3%2C4" {
		t.Errorf("request = %s", gotPath)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "new note (near Epping)" || first.Creator != "alice" || first.Description != "Bench missing" {
		t.Errorf("unexpected item %+v", first)
	}
	if first.Lat != 51.5 || first.Lon != 0.1 || first.PubDate != "Mon, 01 Jan 2024 10:00:00 +0000" {
		t.Errorf("unexpected position or date %+v", first)
	}
	if items[1].GUID != "https://api.example.org/api/0.6/notes/43" || items[1].Creator != "" {
		t.Errorf("unexpected item %+v", items[1])
	}
}

func TestNoteFeedEmptyChannel(t *testing.T) {
	c := newTestClient(t, core.NoCredentials(), respondXML(http.StatusOK, `<rss version="2.0"><channel><title>OpenStreetMap Notes</title></channel></rss>`))

	items, err := c.Notes().FeedByBoundingBox(context.Background(), BoundingBox{Left: 1, Bottom: 2, Right: 3, Top: 4})
	if err != nil {
		t.Fatalf("FeedByBoundingBox: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("expected an empty, non-nil list, got %#v", items)
	}
}

func TestNoteFeedRejectsOtherDocuments(t *testing.T) {
	c := newTestClient(t, core.NoCredentials(), respondXML(http.StatusOK, noteXML))

	_, err := c.Notes().FeedByBoundingBox(context.Background(), BoundingBox{Left: 1, Bottom: 2, Right: 3, Top: 4})
	if !errors.Is(err, core.ErrDecode) {
		t.Errorf("expected DECODE_ERROR for a non-feed document, got %v", err)
	}
}
