package model

// Direction is the travel direction reported by the device.
type Direction int

const (
	DirectionForward Direction = 0
	DirectionReverse Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionReverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// Status is one decoded status frame. A nil field means the key was absent.
type Status struct {
	SSID       *string    `json:"ssid,omitempty"`
	Version    *string    `json:"version,omitempty"`
	BatVoltage *float64   `json:"batVoltage,omitempty"`
	BatRate    *float64   `json:"batRate,omitempty"`
	Speed      *float64   `json:"speed,omitempty"`
	Direction  *Direction `json:"direction,omitempty"`
}

// Stopped reports whether the device reported a speed of exactly zero.
func (s Status) Stopped() bool {
	return s.Speed != nil && *s.Speed == 0
}

// Forward reports whether the device reported forward travel.
func (s Status) Forward() bool {
	return s.Direction != nil && *s.Direction == DirectionForward
}

type Command string

const (
	CommandBackward Command = "#DIRBACK"
	CommandForward  Command = "#DIRFWD"
	CommandSlower   Command = "#SLOWER"
	CommandFaster   Command = "#FASTER"
	CommandStop     Command = "#STOP"
)

var Commands = []Command{
	CommandBackward,
	CommandForward,
	CommandSlower,
	CommandFaster,
	CommandStop,
}

func (c Command) Valid() bool {
	for _, known := range Commands {
		if c == known {
			return true
		}
	}
	return false
}

// Phase is the lifecycle phase of a device connection.
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseOpen
	PhaseClosed
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseOpen:
		return "open"
	case PhaseClosed:
		return "closed"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}
