package status

import (
	"errors"
	"testing"

	"github.com/vmorsell/microrail-remote/pkg/model"
)

func TestDecode_FullFrame(t *testing.T) {
	payload := []byte(`{"ssid":"Home","version":"1.2","batVoltage":7.4,"batRate":80,"speed":0,"direction":0}`)

	s, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got := Text(s.SSID); got != "Home" {
		t.Errorf("expected ssid Home, got %q", got)
	}
	if got := Text(s.Version); got != "1.2" {
		t.Errorf("expected version 1.2, got %q", got)
	}
	if got := Number(s.BatVoltage); got != "7.4" {
		t.Errorf("expected voltage 7.4, got %q", got)
	}
	if got := Number(s.BatRate); got != "80" {
		t.Errorf("expected capacity 80, got %q", got)
	}
	if got := Number(s.Speed); got != "0" {
		t.Errorf("expected speed 0, got %q", got)
	}
	if s.Direction == nil || *s.Direction != model.DirectionForward {
		t.Errorf("expected forward direction, got %v", s.Direction)
	}
	if !s.Stopped() {
		t.Error("expected status to be stopped")
	}
}

func TestDecode_IgnoresUnknownKeys(t *testing.T) {
	s, err := Decode([]byte(`{"speed":5,"direction":1,"motor":"hot"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if s.Stopped() {
		t.Error("expected status to be moving")
	}
	if s.Forward() {
		t.Error("expected reverse direction")
	}
}

func TestDecode_MissingKeys(t *testing.T) {
	s, err := Decode([]byte(`{}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := Text(s.SSID); got != Placeholder {
		t.Errorf("expected placeholder for ssid, got %q", got)
	}
	if got := Number(s.Speed); got != Placeholder {
		t.Errorf("expected placeholder for speed, got %q", got)
	}
	if s.Direction != nil {
		t.Errorf("expected nil direction, got %v", *s.Direction)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		target  error
	}{
		{"not json", "not json at all", ErrNotObject},
		{"empty", "", ErrNotObject},
		{"null", "null", ErrNotObject},
		{"array", `[1,2]`, ErrNotObject},
		{"truncated", `{"ssid":"Home"`, nil},
		{"wrong type", `{"speed":"fast"}`, nil},
		{"direction out of range", `{"direction":2}`, ErrInvalidDirection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			if err == nil {
				t.Fatalf("expected error for %q", tt.payload)
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if string(decodeErr.Payload) != tt.payload {
				t.Errorf("expected payload %q, got %q", tt.payload, decodeErr.Payload)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestNumber(t *testing.T) {
	negZero := 0.0
	negZero = -negZero
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"integer", 80, "80"},
		{"fraction", 7.4, "7.4"},
		{"two decimals", 4.15, "4.15"},
		{"zero", 0, "0"},
		{"negative zero", negZero, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			if got := Number(&in); got != tt.want {
				t.Errorf("Number(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode_RoundTripsSimulatorStatus(t *testing.T) {
	ssid := "microrail01"
	speed := 14.0
	dir := model.DirectionReverse
	b, err := Encode(model.Status{SSID: &ssid, Speed: &speed, Direction: &dir})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(b) != `{"ssid":"microrail01","speed":14,"direction":1}` {
		t.Errorf("unexpected encoding: %s", b)
	}
}
