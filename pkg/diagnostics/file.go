package diagnostics

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vesselness3d/internal/models"
	"vesselness3d/pkg/mhd"
	"vesselness3d/pkg/visualization"
)

// FileSink writes volumes as MetaImage files below a root directory and
// sends messages to a logger. When previews are enabled, every scalar
// volume is also rendered as a maximum-intensity projection PNG.
type FileSink struct {
	mu      sync.Mutex
	root    string
	dirs    []string
	logger  *log.Logger
	preview bool
}

// NewFileSink creates a sink rooted at dir. A nil logger writes to stderr.
func NewFileSink(dir string, logger *log.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics directory: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &FileSink{root: dir, logger: logger}, nil
}

// SetPreview enables PNG projections next to each saved volume
func (s *FileSink) SetPreview(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview = enabled
}

// Dir returns the directory saves currently go to
func (s *FileSink) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir()
}

func (s *FileSink) dir() string {
	return filepath.Join(append([]string{s.root}, s.dirs...)...)
}

func (s *FileSink) Disp(msg string) {
	s.logger.Println(msg)
}

func (s *FileSink) SaveVolume(name string, v *models.Volume) {
	s.mu.Lock()
	path := filepath.Join(s.dir(), name)
	preview := s.preview
	s.mu.Unlock()

	if err := mhd.Write(path, v); err != nil {
		s.logger.Printf("Warning: Failed to save %s: %v", path, err)
		return
	}
	if preview && v.Dims() == 3 {
		viewer := visualization.NewViewer(v)
		viewer.AutoWindow()
		img, err := viewer.MaximumIntensityProjection("z")
		if err == nil {
			err = viewer.SaveImage(img, strings.TrimSuffix(path, filepath.Ext(path))+"_mip.png", 1)
		}
		if err != nil {
			s.logger.Printf("Warning: Failed to save preview of %s: %v", path, err)
		}
	}
}

func (s *FileSink) SaveVectorVolume(name string, components []*models.Volume) {
	s.mu.Lock()
	path := filepath.Join(s.dir(), name)
	s.mu.Unlock()

	if err := mhd.WriteVector(path, components); err != nil {
		s.logger.Printf("Warning: Failed to save %s: %v", path, err)
	}
}

func (s *FileSink) PushSubdir(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs = append(s.dirs, name)
}

func (s *FileSink) PopSubdir() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dirs) > 0 {
		s.dirs = s.dirs[:len(s.dirs)-1]
	}
}
