// Package ui projects device status onto a set of named display elements.
package ui

import (
	"github.com/vmorsell/microrail-remote/internal/status"
	"github.com/vmorsell/microrail-remote/pkg/model"
)

const (
	ElementSSID     = "ssid"
	ElementVersion  = "version"
	ElementVoltage  = "voltage"
	ElementCapacity = "capacity"
	ElementSpeed    = "speed"

	IconForward = "iconfwd"
	IconReverse = "iconrev"

	ButtonForward  = "buttonForward"
	ButtonBackward = "buttonBackward"
)

// View is a display surface addressed by element ID.
type View interface {
	SetText(id, text string)
	SetVisible(id string, visible bool)
	SetEnabled(id string, enabled bool)
}

// Render writes s to v. Exactly one direction icon is visible afterwards and
// both movement buttons share a single gate: enabled only while stopped.
func Render(v View, s model.Status) {
	v.SetText(ElementSSID, status.Text(s.SSID))
	v.SetText(ElementVersion, status.Text(s.Version))
	v.SetText(ElementVoltage, status.Number(s.BatVoltage))
	v.SetText(ElementCapacity, status.Number(s.BatRate))
	v.SetText(ElementSpeed, status.Number(s.Speed))

	forward := s.Forward()
	v.SetVisible(IconForward, forward)
	v.SetVisible(IconReverse, !forward)

	stopped := s.Stopped()
	v.SetEnabled(ButtonForward, stopped)
	v.SetEnabled(ButtonBackward, stopped)
}
