// Package devicesim is a stand-in for the rail vehicle. It speaks the same
// WebSocket protocol as the firmware so the remote can be run and tested
// without hardware.
package devicesim

import (
	"sync"

	"github.com/vmorsell/microrail-remote/pkg/model"
)

const (
	DefaultSSID     = "microrail01"
	DefaultVersion  = "MicroRail R v0.5 sim"
	DefaultStep     = 7
	MaxSpeed        = 100
	fullVoltage     = 4.2
	fullBatteryRate = 100
)

// Device holds the simulated drive state. Direction may only change while the
// actual speed is zero; speed ramps towards the target one step per tick.
type Device struct {
	mu         sync.Mutex
	ssid       string
	version    string
	step       int
	direction  model.Direction
	actual     int
	target     int
	batVoltage float64
	batRate    int
}

func NewDevice() *Device {
	return &Device{
		ssid:       DefaultSSID,
		version:    DefaultVersion,
		step:       DefaultStep,
		direction:  model.DirectionForward,
		batVoltage: fullVoltage,
		batRate:    fullBatteryRate,
	}
}

// Handle applies a command literal. Unknown literals are ignored.
func (d *Device) Handle(cmd model.Command) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch cmd {
	case model.CommandStop:
		d.target = 0
	case model.CommandSlower:
		d.target = clamp(d.target - d.step)
	case model.CommandFaster:
		d.target = clamp(d.target + d.step)
	case model.CommandBackward:
		if d.actual == 0 {
			d.direction = model.DirectionReverse
		}
	case model.CommandForward:
		if d.actual == 0 {
			d.direction = model.DirectionForward
		}
	}
}

// Tick moves the actual speed one step towards the target and reports
// whether it changed.
func (d *Device) Tick() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.actual < d.target:
		d.actual = clamp(d.actual + d.step)
	case d.actual > d.target:
		d.actual = clamp(d.actual - d.step)
	default:
		return false
	}
	return true
}

func (d *Device) Status() model.Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	ssid := d.ssid
	version := d.version
	voltage := d.batVoltage
	rate := float64(d.batRate)
	speed := float64(d.actual)
	direction := d.direction
	return model.Status{
		SSID:       &ssid,
		Version:    &version,
		BatVoltage: &voltage,
		BatRate:    &rate,
		Speed:      &speed,
		Direction:  &direction,
	}
}

func clamp(speed int) int {
	if speed < 0 {
		return 0
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}
