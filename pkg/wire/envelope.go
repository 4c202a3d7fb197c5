package wire

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Variant binds one child element name to a decoder for T. A slice of
// variants is the set of tag names an envelope accepts for T.
type Variant[T any] struct {
	Name   string
	Decode func(d *xml.Decoder, start xml.StartElement) (T, error)
}

// Tag returns a variant that decodes the element named name straight into T
func Tag[T any](name string) Variant[T] {
	return Variant[T]{
		Name: name,
		Decode: func(d *xml.Decoder, start xml.StartElement) (T, error) {
			var v T
			err := d.DecodeElement(&v, &start)
			return v, err
		},
	}
}

// Into returns a variant that decodes the element named name as V and
// converts it to T. It is how polymorphic envelopes are declared:
//
//	wire.Into("way", func(w *Way) Element { return w })
func Into[T, V any](name string, convert func(*V) T) Variant[T] {
	return Variant[T]{
		Name: name,
		Decode: func(d *xml.Decoder, start xml.StartElement) (T, error) {
			v := new(V)
			if err := d.DecodeElement(v, &start); err != nil {
				var zero T
				return zero, err
			}
			return convert(v), nil
		},
	}
}

// Children decodes the direct children of the document's root element in
// document order. Every child whose name matches a variant is decoded and
// passed to yield; other children are skipped. Returning false from yield
// stops the walk early.
func Children[T any](data []byte, variants []Variant[T], yield func(T) bool) error {
	d := xml.NewDecoder(bytes.NewReader(data))

	root, err := rootElement(d)
	if err != nil {
		return err
	}
	return Walk(d, root, variants, yield)
}

// Walk is Children for a decoder positioned just after start, as inside an
// xml.Unmarshaler. When yield never returns false, Walk consumes the
// input up to and including the end of start.
func Walk[T any](d *xml.Decoder, start xml.StartElement, variants []Variant[T], yield func(T) bool) error {
	for {
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("unexpected end of document inside <%s>", start.Name.Local)
			}
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			variant, ok := match(variants, t.Name.Local)
			if !ok {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			v, err := variant.Decode(d, t)
			if err != nil {
				return fmt.Errorf("decoding <%s>: %w", t.Name.Local, err)
			}
			if !yield(v) {
				return nil
			}
		case xml.EndElement:
			return nil
		}
	}
}

// rootElement advances d past the prolog to the first start element
func rootElement(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, &MissingFieldError{Field: "root element"}
			}
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func match[T any](variants []Variant[T], name string) (Variant[T], bool) {
	for _, v := range variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant[T]{}, false
}

func variantNames[T any](variants []Variant[T]) []string {
	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = v.Name
	}
	return names
}

// Child is one named element of an outgoing envelope
type Child struct {
	Name  string
	Value any
}

// Envelope is an outgoing document: a root element, its attributes, and
// named children encoded in order. Child values keep their own field
// mapping; the envelope only supplies the element names.
type Envelope struct {
	Root     string
	Attr     []xml.Attr
	Children []Child
}

// Wrap returns an <root> envelope holding a single named child
func Wrap(root, name string, value any) Envelope {
	return Envelope{
		Root:     root,
		Children: []Child{{Name: name, Value: value}},
	}
}

// MarshalXML implements xml.Marshaler
func (e Envelope) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: e.Root}, Attr: e.Attr}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, c := range e.Children {
		if err := enc.EncodeElement(c.Value, xml.StartElement{Name: xml.Name{Local: c.Name}}); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
