// Package diagnostics defines the optional observer through which filters
// report intermediate scalar ranges and volumes. Sinks never influence the
// numbers they observe; any failure inside a sink is handled by the sink.
package diagnostics

import (
	"vesselness3d/internal/models"
)

// Sink receives diagnostic messages and named volumes
type Sink interface {
	// Disp records a text message
	Disp(msg string)

	// SaveVolume persists a scalar volume under name in the current subdirectory
	SaveVolume(name string, v *models.Volume)

	// SaveVectorVolume persists same-shaped components as one multi-channel volume
	SaveVectorVolume(name string, components []*models.Volume)

	// PushSubdir descends into a named subdirectory for subsequent saves
	PushSubdir(name string)

	// PopSubdir returns to the parent of the current subdirectory
	PopSubdir()
}

// Nop discards everything
type Nop struct{}

func (Nop) Disp(string)                               {}
func (Nop) SaveVolume(string, *models.Volume)         {}
func (Nop) SaveVectorVolume(string, []*models.Volume) {}
func (Nop) PushSubdir(string)                         {}
func (Nop) PopSubdir()                                {}

// Enabled reports whether diagnostic calls on s would have any effect
func Enabled(s Sink) bool {
	switch s.(type) {
	case nil, Nop, *Nop:
		return false
	}
	return true
}

// OrNop returns s, or Nop when s is nil
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}
