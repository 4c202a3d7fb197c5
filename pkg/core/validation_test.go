package core

import (
	"errors"
	"strings"
	"testing"
)

type point struct {
	Lat  float64 `validate:"gte=-90,lte=90"`
	Lon  float64 `validate:"gte=-180,lte=180"`
	Text string  `validate:"required"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		value   point
		wantErr bool
		field   string
	}{
		{"valid", point{Lat: 51.5, Lon: -0.12, Text: "hello"}, false, ""},
		{"edge values", point{Lat: -90, Lon: 180, Text: "x"}, false, ""},
		{"latitude too large", point{Lat: 91, Lon: 0, Text: "x"}, true, "Lat"},
		{"longitude too small", point{Lat: 0, Lon: -181, Text: "x"}, true, "Lon"},
		{"missing text", point{Lat: 0, Lon: 0}, true, "Text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(CodeEncode, tt.value)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrEncode) {
				t.Fatalf("expected ENCODE_ERROR, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected message to name %s, got %q", tt.field, err.Error())
			}
		})
	}
}

func TestValidateNonStruct(t *testing.T) {
	err := Validate(CodeQueryEncode, 42)
	if !errors.Is(err, ErrQueryEncode) {
		t.Fatalf("expected QUERY_ENCODE_ERROR, got %v", err)
	}
}
