// Package visualization renders 2D previews of volumes: orthogonal slices,
// maximum-intensity projections and heat maps.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"vesselness3d/internal/models"
	"vesselness3d/pkg/volmath"
)

// Viewer extracts 2D images from a 3D volume. Voxel values are mapped to
// grey levels through a linear window [lo, hi].
type Viewer struct {
	// volume holds the 3D data being displayed
	volume *models.Volume

	// display window
	lo, hi float64
}

// NewViewer creates a viewer over a 3D volume with the window [0, 1]
func NewViewer(volume *models.Volume) *Viewer {
	return &Viewer{
		volume: volume,
		lo:     0,
		hi:     1,
	}
}

// SetWindow sets the value range mapped to black..white
func (v *Viewer) SetWindow(lo, hi float64) {
	v.lo, v.hi = lo, hi
}

// AutoWindow fits the window to the volume's value range
func (v *Viewer) AutoWindow() {
	lo, hi := volmath.Range(v.volume)
	if math.IsNaN(lo) {
		lo, hi = 0, 1
	}
	v.SetWindow(lo, hi)
}

// normalize maps a voxel value into [0, 1] through the window
func (v *Viewer) normalize(val float64) float64 {
	span := v.hi - v.lo
	if span <= 0 || math.IsNaN(val) {
		return 0
	}
	return math.Max(0, math.Min(1, (val-v.lo)/span))
}

// plane describes the image geometry of one axis: cols x rows pixels, with
// planes images stacked along the axis
type plane struct {
	cols, rows, planes int
	index              func(col, row, p int) int
}

func (v *Viewer) planeFor(axis string) (plane, error) {
	w, h, d := v.volume.Width(), v.volume.Height(), v.volume.Depth()
	switch axis {
	case "x", "X":
		// YZ plane
		return plane{d, h, w, func(col, row, p int) int { return v.volume.Index(p, row, col) }}, nil
	case "y", "Y":
		// XZ plane
		return plane{w, d, h, func(col, row, p int) int { return v.volume.Index(col, p, row) }}, nil
	case "z", "Z":
		// XY plane
		return plane{w, h, d, func(col, row, p int) int { return v.volume.Index(col, row, p) }}, nil
	}
	return plane{}, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	pl, err := v.planeFor(axis)
	if err != nil {
		return nil, err
	}
	if position >= pl.planes {
		return nil, fmt.Errorf("position %d exceeds %s extent %d", position, axis, pl.planes)
	}

	img := image.NewGray16(image.Rect(0, 0, pl.cols, pl.rows))
	for row := 0; row < pl.rows; row++ {
		for col := 0; col < pl.cols; col++ {
			val := v.volume.Data[pl.index(col, row, position)]
			img.SetGray16(col, row, color.Gray16{Y: uint16(v.normalize(val) * 65535)})
		}
	}
	return img, nil
}

// projection returns the maximum of each ray through the volume along axis
func (v *Viewer) projection(axis string) (pl plane, mip []float64, err error) {
	pl, err = v.planeFor(axis)
	if err != nil {
		return pl, nil, err
	}
	mip = make([]float64, pl.cols*pl.rows)
	for row := 0; row < pl.rows; row++ {
		for col := 0; col < pl.cols; col++ {
			best := math.Inf(-1)
			for p := 0; p < pl.planes; p++ {
				if val := v.volume.Data[pl.index(col, row, p)]; val > best {
					best = val
				}
			}
			mip[row*pl.cols+col] = best
		}
	}
	return pl, mip, nil
}

// MaximumIntensityProjection collapses the volume along axis, keeping the
// brightest voxel of every ray
func (v *Viewer) MaximumIntensityProjection(axis string) (image.Image, error) {
	pl, mip, err := v.projection(axis)
	if err != nil {
		return nil, err
	}
	img := image.NewGray16(image.Rect(0, 0, pl.cols, pl.rows))
	for row := 0; row < pl.rows; row++ {
		for col := 0; col < pl.cols; col++ {
			img.SetGray16(col, row, color.Gray16{Y: uint16(v.normalize(mip[row*pl.cols+col]) * 65535)})
		}
	}
	return img, nil
}

// heatRamp is sampled from cold to hot
var heatRamp = []colorful.Color{
	{R: 0, G: 0, B: 0},
	{R: 0.1, G: 0.1, B: 0.6},
	{R: 0.8, G: 0.1, B: 0.1},
	{R: 1, G: 0.85, B: 0.1},
	{R: 1, G: 1, B: 1},
}

// heatColor maps t in [0, 1] onto heatRamp, blending in Lab space
func heatColor(t float64) colorful.Color {
	if t <= 0 {
		return heatRamp[0]
	}
	if t >= 1 {
		return heatRamp[len(heatRamp)-1]
	}
	pos := t * float64(len(heatRamp)-1)
	i := int(pos)
	return heatRamp[i].BlendLab(heatRamp[i+1], pos-float64(i)).Clamped()
}

// Heatmap renders the maximum-intensity projection along axis in false colour
func (v *Viewer) Heatmap(axis string) (image.Image, error) {
	pl, mip, err := v.projection(axis)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, pl.cols, pl.rows))
	for row := 0; row < pl.rows; row++ {
		for col := 0; col < pl.cols; col++ {
			img.Set(col, row, heatColor(v.normalize(mip[row*pl.cols+col])))
		}
	}
	return img, nil
}

// ExtractRegion extracts a 3D subregion from the volume
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) (*models.Volume, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	if startX+sizeX > v.volume.Width() || startY+sizeY > v.volume.Height() || startZ+sizeZ > v.volume.Depth() {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := models.NewVolume(sizeX, sizeY, sizeZ)
	if len(v.volume.Spacing) == 3 {
		copy(region.Spacing, v.volume.Spacing)
	}
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				region.Set(x, y, z, v.volume.At(startX+x, startY+y, startZ+z))
			}
		}
	}
	return region, nil
}

// SaveImage writes img to filename, enlarging it by an integer zoom factor
// first. The format follows the file extension.
func (v *Viewer) SaveImage(img image.Image, filename string, zoom int) error {
	if zoom > 1 {
		b := img.Bounds()
		img = imaging.Resize(img, b.Dx()*zoom, b.Dy()*zoom, imaging.NearestNeighbor)
	}
	return imaging.Save(img, filename)
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	pl, err := v.planeFor(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < pl.planes; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveImage(img, filename, 1); err != nil {
			return err
		}
	}
	return nil
}
