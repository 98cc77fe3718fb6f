// Package status decodes status frames sent by the device and formats their
// fields for display.
package status

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/vmorsell/microrail-remote/pkg/model"
)

// Placeholder is displayed for fields that are missing from a status frame.
const Placeholder = "undefined"

var (
	ErrNotObject        = errors.New("payload is not a JSON object")
	ErrInvalidDirection = errors.New("direction must be 0 or 1")
)

// DecodeError is returned by Decode for frames that are not valid status records.
type DecodeError struct {
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode status frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type frame struct {
	SSID       *string  `json:"ssid"`
	Version    *string  `json:"version"`
	BatVoltage *float64 `json:"batVoltage"`
	BatRate    *float64 `json:"batRate"`
	Speed      *float64 `json:"speed"`
	Direction  *float64 `json:"direction"`
}

// Decode parses a status frame. Unknown keys are ignored and missing keys
// leave the corresponding field nil.
func Decode(payload []byte) (model.Status, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return model.Status{}, &DecodeError{Payload: payload, Err: ErrNotObject}
	}

	var f frame
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return model.Status{}, &DecodeError{Payload: payload, Err: err}
	}

	s := model.Status{
		SSID:       f.SSID,
		Version:    f.Version,
		BatVoltage: f.BatVoltage,
		BatRate:    f.BatRate,
		Speed:      f.Speed,
	}
	if f.Direction != nil {
		var d model.Direction
		switch *f.Direction {
		case 0:
			d = model.DirectionForward
		case 1:
			d = model.DirectionReverse
		default:
			return model.Status{}, &DecodeError{Payload: payload, Err: ErrInvalidDirection}
		}
		s.Direction = &d
	}
	return s, nil
}

// Encode serializes a status the way the device sends it.
func Encode(s model.Status) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	return b, nil
}

// Text returns v verbatim, or Placeholder when v is nil.
func Text(v *string) string {
	if v == nil {
		return Placeholder
	}
	return *v
}

// Number formats v in its shortest form (7.4, 80, 0), or Placeholder when v is nil.
func Number(v *float64) string {
	if v == nil {
		return Placeholder
	}
	n := *v
	if n == 0 {
		// normalize negative zero
		n = 0
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
