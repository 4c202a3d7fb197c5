package wire

import (
	"encoding/xml"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/NERVsystems/osmapi/pkg/core"
)

type tag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

type node struct {
	ID      int64   `xml:"id,attr"`
	Version *int    `xml:"version,attr,omitempty"`
	Lat     float64 `xml:"lat,attr"`
	Lon     float64 `xml:"lon,attr"`
	Tags    []tag   `xml:"tag"`
}

type way struct {
	ID   int64 `xml:"id,attr"`
	Refs []struct {
		Ref int64 `xml:"ref,attr"`
	} `xml:"nd"`
}

type relation struct {
	ID int64 `xml:"id,attr"`
}

// shape is a small polymorphic target used by the tests below
type shape interface{ kind() string }

func (*node) kind() string     { return "node" }
func (*way) kind() string      { return "way" }
func (*relation) kind() string { return "relation" }

var shapes = []Variant[shape]{
	Into("node", func(n *node) shape { return n }),
	Into("way", func(w *way) shape { return w }),
	Into("relation", func(r *relation) shape { return r }),
}

const wayDoc = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <note>ignored</note>
  <way id="49780"><nd ref="1150401"/><nd ref="1150400"/></way>
</osm>`

func TestSinglePolymorphicSelection(t *testing.T) {
	w, err := Single(Tag[way]("way")).Decode([]byte(wayDoc))
	if err != nil {
		t.Fatalf("decoding way: %v", err)
	}
	if w.ID != 49780 || len(w.Refs) != 2 || w.Refs[1].Ref != 1150400 {
		t.Fatalf("unexpected way %+v", w)
	}

	_, err = Single(Tag[relation]("relation")).Decode([]byte(wayDoc))
	var missing *MissingFieldError
	if !errors.As(err, &missing) || missing.Field != "element" {
		t.Fatalf("expected missing element, got %v", err)
	}
}

func TestSingleDispatchTable(t *testing.T) {
	v, err := Single(shapes...).Decode([]byte(wayDoc))
	if err != nil {
		t.Fatal(err)
	}
	if v.kind() != "way" {
		t.Fatalf("expected way, got %s", v.kind())
	}
}

func TestSingleRejectsSeveral(t *testing.T) {
	doc := `<osm><node id="1" lat="0" lon="0"/><node id="2" lat="0" lon="0"/></osm>`
	_, err := Single(Tag[node]("node")).Decode([]byte(doc))
	var dup *DuplicateElementError
	if !errors.As(err, &dup) {
		t.Fatalf("expected duplicate element error, got %v", err)
	}
}

func TestListPreservesOrder(t *testing.T) {
	doc := `<osm>
  <node id="30" lat="0" lon="0"/>
  <bounds minlat="0"/>
  <node id="10" lat="0" lon="0"/>
  <node id="20" lat="0" lon="0"/>
</osm>`
	nodes, err := List(Tag[node]("node")).Decode([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	var ids []int64
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	if !reflect.DeepEqual(ids, []int64{30, 10, 20}) {
		t.Fatalf("expected document order [30 10 20], got %v", ids)
	}
}

func TestListPolymorphicOrder(t *testing.T) {
	doc := `<osm><way id="2"/><node id="1" lat="0" lon="0"/><unknown><node id="9"/></unknown><relation id="3"/></osm>`
	items, err := List(shapes...).Decode([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	var kinds []string
	for _, it := range items {
		kinds = append(kinds, it.kind())
	}
	if !reflect.DeepEqual(kinds, []string{"way", "node", "relation"}) {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}

func TestListEmpty(t *testing.T) {
	items, err := List(Tag[node]("node")).Decode([]byte(`<osm></osm>`))
	if err != nil {
		t.Fatal(err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestDecodeNumericFailure(t *testing.T) {
	doc := `<osm><node id="abc" lat="0" lon="0"/></osm>`
	_, err := Single(Tag[node]("node")).Decode([]byte(doc))
	if err == nil {
		t.Fatal("expected parse failure for non-numeric id")
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, doc := range []string{"", "<osm><node id=\"1\">", "not xml"} {
		if _, err := List(Tag[node]("node")).Decode([]byte(doc)); err == nil {
			t.Errorf("expected error for %q", doc)
		}
	}
}

func TestXMLRoundTrip(t *testing.T) {
	version := 2
	tests := []node{
		{ID: 1234, Version: &version, Lat: 12.1234567, Lon: -8.7654321, Tags: []tag{{K: "amenity", V: "school"}}},
		{ID: 1, Lat: 0, Lon: 0},
	}

	for _, want := range tests {
		data, contentType, err := XML(Wrap("osm", "node", want)).Encode()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if contentType != ContentTypeXML {
			t.Errorf("unexpected content type %q", contentType)
		}
		got, err := Single(Tag[node]("node")).Decode(data)
		if err != nil {
			t.Fatalf("decode: %v\n%s", err, data)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
		}
	}
}

func TestEnvelopeAttributes(t *testing.T) {
	env := Envelope{
		Root: "osmChange",
		Attr: []xml.Attr{{Name: xml.Name{Local: "version"}, Value: "0.6"}},
		Children: []Child{
			{Name: "create", Value: struct{}{}},
			{Name: "delete", Value: struct{}{}},
		},
	}
	data, err := xml.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	want := `<osmChange version="0.6"><create></create><delete></delete></osmChange>`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestXMLEncodeFailure(t *testing.T) {
	_, _, err := XML(make(chan int)).Encode()
	if !errors.Is(err, core.ErrEncode) {
		t.Fatalf("expected ENCODE_ERROR, got %v", err)
	}
}

type comment struct {
	Text string `schema:"text" validate:"required"`
}

func TestFormBody(t *testing.T) {
	data, contentType, err := Form(comment{Text: "fixed & verified"}).Encode()
	if err != nil {
		t.Fatal(err)
	}
	if contentType != ContentTypeForm {
		t.Errorf("unexpected content type %q", contentType)
	}
	if string(data) != "text=fixed+%26+verified" {
		t.Errorf("unexpected body %q", data)
	}

	_, _, err = Form(comment{}).Encode()
	if !errors.Is(err, core.ErrEncode) {
		t.Fatalf("expected ENCODE_ERROR for invalid form, got %v", err)
	}
}

func TestRawFormAndNone(t *testing.T) {
	data, contentType, err := RawForm([]byte("text=already%20encoded")).Encode()
	if err != nil || string(data) != "text=already%20encoded" || contentType != ContentTypeForm {
		t.Fatalf("unexpected raw form result %q %q %v", data, contentType, err)
	}

	data, contentType, err = None().Encode()
	if err != nil || data != nil || contentType != "" {
		t.Fatalf("expected empty body, got %q %q %v", data, contentType, err)
	}
	if None().Kind().String() != "none" || XML(nil).Kind().String() != "xml" {
		t.Fatal("unexpected kind names")
	}
}

func TestScalarShapes(t *testing.T) {
	n, err := Uint().Decode([]byte("188664\n"))
	if err != nil || n != 188664 {
		t.Fatalf("Uint() = %d, %v", n, err)
	}
	if _, err := Uint().Decode([]byte("  ")); err == nil {
		t.Fatal("expected error for empty body")
	}
	if _, err := Uint().Decode([]byte("-1")); err == nil {
		t.Fatal("expected error for negative value")
	}

	s, _ := Text().Decode([]byte(" ok \n"))
	if s != "ok" {
		t.Fatalf("Text() = %q", s)
	}

	if _, err := Empty().Decode([]byte("anything")); err != nil {
		t.Fatal(err)
	}
}

func TestDocumentShape(t *testing.T) {
	type versions struct {
		Versions []string `xml:"api>version"`
	}
	v, err := Document[versions]().Decode([]byte(`<osm><api><version>0.6</version></api></osm>`))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(v.Versions, ",") != "0.6" {
		t.Fatalf("unexpected versions %v", v.Versions)
	}
	if _, err := Document[versions]().Decode(nil); err == nil {
		t.Fatal("expected error for empty document")
	}
}
