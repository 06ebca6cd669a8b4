package onvif

import (
	"fmt"
	"sync"

	"onvif-camd/internal/ptz"
)

// maxPresets is the fixed capacity of the preset store.
const maxPresets = 10

// Preset is a named position snapshot in normalized coordinates. Presets
// live only for the process lifetime; there is no persistence.
type Preset struct {
	Token string
	Name  string
	X     float32
	Y     float32
}

// PresetStore is a fixed-capacity ordered preset list. Order is kept dense
// on removal so enumeration stays deterministic.
type PresetStore struct {
	mu      sync.Mutex
	presets []Preset
}

// NewPresetStore creates an empty store.
func NewPresetStore() *PresetStore {
	return &PresetStore{presets: make([]Preset, 0, maxPresets)}
}

// Set appends a preset snapshotting the given normalized position and
// returns its token. Fails with ptz.ErrPresetLimit at capacity.
func (p *PresetStore) Set(name string, x, y float32) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.presets) >= maxPresets {
		return "", ptz.ErrPresetLimit
	}

	token := fmt.Sprintf("Preset%d", len(p.presets)+1)
	p.presets = append(p.presets, Preset{Token: token, Name: name, X: x, Y: y})
	return token, nil
}

// Get looks a preset up by token.
func (p *PresetStore) Get(token string) (Preset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, preset := range p.presets {
		if preset.Token == token {
			return preset, nil
		}
	}
	return Preset{}, ptz.ErrPresetNotFound
}

// All returns the presets in insertion order.
func (p *PresetStore) All() []Preset {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Preset, len(p.presets))
	copy(out, p.presets)
	return out
}

// Remove deletes a preset by token, shifting later entries down.
func (p *PresetStore) Remove(token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, preset := range p.presets {
		if preset.Token == token {
			p.presets = append(p.presets[:i], p.presets[i+1:]...)
			return nil
		}
	}
	return ptz.ErrPresetNotFound
}

// Len reports the number of stored presets.
func (p *PresetStore) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.presets)
}
