package ui

import "sync"

// Panel is an in-memory View. Elements that were never written report the
// zero value: empty text, hidden, disabled.
type Panel struct {
	mu      sync.RWMutex
	text    map[string]string
	visible map[string]bool
	enabled map[string]bool
}

func NewPanel() *Panel {
	return &Panel{
		text:    make(map[string]string),
		visible: make(map[string]bool),
		enabled: make(map[string]bool),
	}
}

func (p *Panel) SetText(id, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text[id] = text
}

func (p *Panel) SetVisible(id string, visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[id] = visible
}

func (p *Panel) SetEnabled(id string, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled[id] = enabled
}

func (p *Panel) Text(id string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text[id]
}

func (p *Panel) Visible(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.visible[id]
}

func (p *Panel) Enabled(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled[id]
}

// Snapshot is a copy of every element's state.
type Snapshot struct {
	Text    map[string]string
	Visible map[string]bool
	Enabled map[string]bool
}

func (p *Panel) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Snapshot{
		Text:    make(map[string]string, len(p.text)),
		Visible: make(map[string]bool, len(p.visible)),
		Enabled: make(map[string]bool, len(p.enabled)),
	}
	for k, v := range p.text {
		s.Text[k] = v
	}
	for k, v := range p.visible {
		s.Visible[k] = v
	}
	for k, v := range p.enabled {
		s.Enabled[k] = v
	}
	return s
}
