package domain

import (
	"errors"
	"testing"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		maxLen  int
		want    string
		wantErr bool
	}{
		{name: "trimmed", in: "  Alice ", maxLen: 32, want: "Alice"},
		{name: "nfc", in: "Jose\u0301", maxLen: 32, want: "Jos\u00e9"},
		{name: "empty", in: "   ", maxLen: 32, wantErr: true},
		{name: "too long", in: "abcdef", maxLen: 5, wantErr: true},
		{name: "rune length", in: "\u00e9\u00e9\u00e9\u00e9\u00e9", maxLen: 5, want: "\u00e9\u00e9\u00e9\u00e9\u00e9"},
		{name: "no limit", in: "abcdef", maxLen: 0, want: "abcdef"},
		{name: "control", in: "bad\x00name", maxLen: 32, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeUsername(tt.in, tt.maxLen)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidUsername) {
					t.Fatalf("err = %v, want ErrInvalidUsername", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeRoomID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "abc123", want: "ABC123"},
		{in: " ABC123\n", want: "ABC123"},
		{in: "", wantErr: true},
		{in: "AB C", wantErr: true},
		{in: "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeRoomID(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidRoomID) {
				t.Fatalf("NormalizeRoomID(%q) err = %v, want ErrInvalidRoomID", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("NormalizeRoomID(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}
