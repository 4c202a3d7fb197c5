package wire

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// MissingFieldError reports a required element or value absent from a response
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

// DuplicateElementError reports more than one candidate element where the
// envelope holds exactly one
type DuplicateElementError struct {
	Names []string
}

func (e *DuplicateElementError) Error() string {
	return fmt.Sprintf("expected exactly one of <%s>, found several", strings.Join(e.Names, ">, <"))
}

// UnexpectedStatusError reports a response that was neither a success nor a
// classified client error
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
}

// Shape decodes a response body into T
type Shape[T any] interface {
	Decode(data []byte) (T, error)
}

// ShapeFunc adapts a function to Shape
type ShapeFunc[T any] func(data []byte) (T, error)

// Decode implements Shape
func (f ShapeFunc[T]) Decode(data []byte) (T, error) {
	return f(data)
}

// Single decodes an envelope holding exactly one element whose name is in
// variants. Children with other names are ignored. Zero candidates fail
// with a *MissingFieldError for "element"; several fail with a
// *DuplicateElementError.
func Single[T any](variants ...Variant[T]) Shape[T] {
	return ShapeFunc[T](func(data []byte) (T, error) {
		var (
			found T
			count int
		)
		err := Children(data, variants, func(v T) bool {
			count++
			if count == 1 {
				found = v
				return true
			}
			return false
		})

		var zero T
		switch {
		case err != nil:
			return zero, err
		case count == 0:
			return zero, &MissingFieldError{Field: "element"}
		case count > 1:
			return zero, &DuplicateElementError{Names: variantNames(variants)}
		}
		return found, nil
	})
}

// List decodes every element whose name is in variants, in document order.
// Children with other names are ignored; an envelope with no candidates
// decodes to an empty, non-nil slice.
func List[T any](variants ...Variant[T]) Shape[[]T] {
	return ShapeFunc[[]T](func(data []byte) ([]T, error) {
		items := []T{}
		err := Children(data, variants, func(v T) bool {
			items = append(items, v)
			return true
		})
		if err != nil {
			return nil, err
		}
		return items, nil
	})
}

// Document decodes the whole body into T with the type's own field mapping
func Document[T any]() Shape[T] {
	return ShapeFunc[T](func(data []byte) (T, error) {
		var v T
		if len(bytes.TrimSpace(data)) == 0 {
			return v, &MissingFieldError{Field: "document"}
		}
		err := xml.Unmarshal(data, &v)
		return v, err
	})
}

// Uint decodes a plain-text unsigned number such as a new id or version
func Uint() Shape[uint64] {
	return ShapeFunc[uint64](func(data []byte) (uint64, error) {
		text := strings.TrimSpace(string(data))
		if text == "" {
			return 0, &MissingFieldError{Field: "value"}
		}
		return strconv.ParseUint(text, 10, 64)
	})
}

// Text returns the body as a string with surrounding whitespace removed
func Text() Shape[string] {
	return ShapeFunc[string](func(data []byte) (string, error) {
		return strings.TrimSpace(string(data)), nil
	})
}

// Empty ignores the body
func Empty() Shape[struct{}] {
	return ShapeFunc[struct{}](func([]byte) (struct{}, error) {
		return struct{}{}, nil
	})
}
