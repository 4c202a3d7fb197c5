// Package wire converts between typed values and the XML and form
// representations the OpenStreetMap API sends and accepts.
package wire

import (
	"bytes"
	"encoding/xml"

	"github.com/NERVsystems/osmapi/pkg/core"
	"github.com/NERVsystems/osmapi/pkg/query"
)

// Content types sent with request bodies
const (
	ContentTypeXML  = "text/xml; charset=utf-8"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// BodyKind selects how a request body is serialized
type BodyKind int

const (
	KindNone BodyKind = iota
	KindXML
	KindForm
	KindRawForm
)

func (k BodyKind) String() string {
	switch k {
	case KindXML:
		return "xml"
	case KindForm:
		return "form"
	case KindRawForm:
		return "raw_form"
	default:
		return "none"
	}
}

// RequestBody is exactly one of: an XML payload, a form payload,
// pre-encoded form bytes, or no body at all.
type RequestBody struct {
	kind    BodyKind
	payload any
	raw     []byte
}

// XML returns a body that serializes payload as an XML document
func XML(payload any) RequestBody {
	return RequestBody{kind: KindXML, payload: payload}
}

// Form returns a body that serializes payload, a struct with `schema`
// tags, as application/x-www-form-urlencoded. The payload is checked
// against its `validate` tags first.
func Form(payload any) RequestBody {
	return RequestBody{kind: KindForm, payload: payload}
}

// RawForm returns a body that sends already encoded form bytes unchanged
func RawForm(data []byte) RequestBody {
	return RequestBody{kind: KindRawForm, raw: data}
}

// None returns an empty body
func None() RequestBody {
	return RequestBody{}
}

// Kind returns the encoding strategy of b
func (b RequestBody) Kind() BodyKind {
	return b.kind
}

// Encode serializes the body. It returns nil data and an empty content
// type for KindNone. Failures are returned as ENCODE_ERROR.
func (b RequestBody) Encode() ([]byte, string, error) {
	switch b.kind {
	case KindXML:
		var buf bytes.Buffer
		buf.WriteString(xml.Header)
		if err := xml.NewEncoder(&buf).Encode(b.payload); err != nil {
			return nil, "", core.Wrap(core.CodeEncode, err, "encoding XML body")
		}
		return buf.Bytes(), ContentTypeXML, nil

	case KindForm:
		if err := core.Validate(core.CodeEncode, b.payload); err != nil {
			return nil, "", err
		}
		values, err := query.Values(b.payload)
		if err != nil {
			return nil, "", core.Wrap(core.CodeEncode, err, "encoding form body")
		}
		return []byte(values.Encode()), ContentTypeForm, nil

	case KindRawForm:
		return b.raw, ContentTypeForm, nil

	default:
		return nil, "", nil
	}
}
