package diagnostics

import (
	"path"
	"sync"

	"vesselness3d/internal/models"
)

// Recorder keeps diagnostics in memory. Saved volumes are keyed by their
// slash-separated path including subdirectories.
type Recorder struct {
	mu       sync.Mutex
	dirs     []string
	Messages []string
	Volumes  map[string]*models.Volume
	Vectors  map[string][]*models.Volume
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{
		Volumes: make(map[string]*models.Volume),
		Vectors: make(map[string][]*models.Volume),
	}
}

func (r *Recorder) key(name string) string {
	return path.Join(append(append([]string(nil), r.dirs...), name)...)
}

func (r *Recorder) Disp(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, msg)
}

func (r *Recorder) SaveVolume(name string, v *models.Volume) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Volumes[r.key(name)] = v.Clone()
}

func (r *Recorder) SaveVectorVolume(name string, components []*models.Volume) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copies := make([]*models.Volume, len(components))
	for i, c := range components {
		copies[i] = c.Clone()
	}
	r.Vectors[r.key(name)] = copies
}

func (r *Recorder) PushSubdir(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs = append(r.dirs, name)
}

func (r *Recorder) PopSubdir() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.dirs) > 0 {
		r.dirs = r.dirs[:len(r.dirs)-1]
	}
}
