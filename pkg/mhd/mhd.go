package mhd

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"vesselness3d/internal/models"
)

// Element types understood by Read. Write always emits MET_DOUBLE.
const (
	MetChar   = "MET_CHAR"
	MetUChar  = "MET_UCHAR"
	MetShort  = "MET_SHORT"
	MetUShort = "MET_USHORT"
	MetInt    = "MET_INT"
	MetUInt   = "MET_UINT"
	MetFloat  = "MET_FLOAT"
	MetDouble = "MET_DOUBLE"
)

func elementSize(elementType string) (int, error) {
	switch elementType {
	case MetChar, MetUChar:
		return 1, nil
	case MetShort, MetUShort:
		return 2, nil
	case MetInt, MetUInt, MetFloat:
		return 4, nil
	case MetDouble:
		return 8, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedElementType, elementType)
}

// Read loads a scalar MetaImage volume. The header may point to a separate
// raw file (resolved relative to the header) or hold the data inline
// (ElementDataFile = LOCAL).
func Read(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, offset, err := ParseHeader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header %s: %w", path, err)
	}
	if h.Channels != 1 {
		return nil, ErrVectorImage
	}

	var raw io.Reader
	if strings.EqualFold(h.ElementDataFile, "LOCAL") {
		if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
			return nil, err
		}
		raw = bufio.NewReader(f)
	} else {
		dataPath := h.ElementDataFile
		if !filepath.IsAbs(dataPath) {
			dataPath = filepath.Join(filepath.Dir(path), dataPath)
		}
		df, err := os.Open(dataPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open data file: %w", err)
		}
		defer df.Close()
		raw = bufio.NewReader(df)
	}

	if h.Compressed {
		zr, err := zlib.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to open compressed data: %w", err)
		}
		defer zr.Close()
		raw = zr
	}

	v := models.NewVolume(h.DimSize...)
	if len(h.ElementSpacing) == h.NDims {
		copy(v.Spacing, h.ElementSpacing)
	}
	if err := decode(raw, h, v.Data); err != nil {
		return nil, fmt.Errorf("failed to read voxel data: %w", err)
	}
	return v, nil
}

func decode(r io.Reader, h *Header, dst []float64) error {
	var order binary.ByteOrder = binary.LittleEndian
	if h.ByteOrderMSB {
		order = binary.BigEndian
	}
	size, err := elementSize(h.ElementType)
	if err != nil {
		return err
	}

	buf := make([]byte, size*len(dst))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}

	for i := range dst {
		b := buf[i*size : (i+1)*size]
		switch h.ElementType {
		case MetChar:
			dst[i] = float64(int8(b[0]))
		case MetUChar:
			dst[i] = float64(b[0])
		case MetShort:
			dst[i] = float64(int16(order.Uint16(b)))
		case MetUShort:
			dst[i] = float64(order.Uint16(b))
		case MetInt:
			dst[i] = float64(int32(order.Uint32(b)))
		case MetUInt:
			dst[i] = float64(order.Uint32(b))
		case MetFloat:
			dst[i] = float64(math.Float32frombits(order.Uint32(b)))
		case MetDouble:
			dst[i] = math.Float64frombits(order.Uint64(b))
		}
	}
	return nil
}

// Write stores v as path (header) plus a sibling .raw file holding
// little-endian MET_DOUBLE samples
func Write(path string, v *models.Volume) error {
	return WriteVector(path, []*models.Volume{v})
}

// WriteVector stores same-shaped components as one multi-channel image with
// channels interleaved per voxel
func WriteVector(path string, components []*models.Volume) error {
	if len(components) == 0 {
		return fmt.Errorf("no components to write")
	}
	ref := components[0]
	for _, c := range components[1:] {
		if !c.SameShape(ref) {
			return fmt.Errorf("component shape %v does not match %v", c.Shape, ref.Shape)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rawName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".raw"
	spacing := ref.Spacing
	if len(spacing) != ref.Dims() {
		spacing = make([]float64, ref.Dims())
		for i := range spacing {
			spacing[i] = 1
		}
	}
	h := &Header{
		NDims:           ref.Dims(),
		DimSize:         ref.Shape,
		ElementSpacing:  spacing,
		ElementType:     MetDouble,
		Channels:        len(components),
		ElementDataFile: rawName,
	}

	var hdr bytes.Buffer
	if _, err := h.WriteTo(&hdr); err != nil {
		return err
	}
	if err := os.WriteFile(path, hdr.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	buf := make([]byte, 8*len(components)*ref.Len())
	for i := 0; i < ref.Len(); i++ {
		for c, comp := range components {
			off := (i*len(components) + c) * 8
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(comp.Data[i]))
		}
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), rawName), buf, 0644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	return nil
}
