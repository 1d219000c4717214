// Package mhd reads and writes MetaImage (.mhd/.raw and .mha) volumes.
package mhd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header is the parsed key/value section of a MetaImage file
type Header struct {
	NDims           int
	DimSize         []int
	ElementSpacing  []float64
	ElementType     string
	Channels        int
	ByteOrderMSB    bool
	Compressed      bool
	ElementDataFile string
}

// ParseHeader reads header lines up to and including ElementDataFile, which
// MetaImage requires to be the final field. The returned count is the number
// of bytes consumed, so LOCAL data can be read from the remainder.
func ParseHeader(r io.Reader) (*Header, int, error) {
	h := &Header{Channels: 1}
	br := bufio.NewReader(r)
	consumed := 0

	for {
		line, readErr := br.ReadString('\n')
		consumed += len(line)
		if readErr == io.EOF && line == "" {
			return nil, consumed, fmt.Errorf("%w: missing ElementDataFile", ErrMalformedHeader)
		}
		if readErr != nil && readErr != io.EOF {
			return nil, consumed, readErr
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return nil, consumed, fmt.Errorf("%w: %q", ErrMalformedHeader, strings.TrimSpace(line))
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		var err error
		switch key {
		case "NDims":
			h.NDims, err = strconv.Atoi(value)
		case "DimSize":
			h.DimSize, err = parseInts(value)
		case "ElementSpacing", "ElementSize":
			h.ElementSpacing, err = parseFloats(value)
		case "ElementType":
			h.ElementType = value
		case "ElementNumberOfChannels":
			h.Channels, err = strconv.Atoi(value)
		case "BinaryDataByteOrderMSB", "ElementByteOrderMSB":
			h.ByteOrderMSB = strings.EqualFold(value, "true")
		case "CompressedData":
			h.Compressed = strings.EqualFold(value, "true")
		case "ElementDataFile":
			h.ElementDataFile = value
			if err := h.validate(); err != nil {
				return nil, consumed, err
			}
			return h, consumed, nil
		}
		if err != nil {
			return nil, consumed, fmt.Errorf("%w: %s: %v", ErrMalformedHeader, key, err)
		}
	}
}

func (h *Header) validate() error {
	if h.NDims <= 0 || len(h.DimSize) != h.NDims {
		return fmt.Errorf("%w: NDims %d does not match DimSize %v", ErrMalformedHeader, h.NDims, h.DimSize)
	}
	for _, n := range h.DimSize {
		if n <= 0 {
			return fmt.Errorf("%w: DimSize %v has a non-positive axis", ErrMalformedHeader, h.DimSize)
		}
	}
	if h.Channels < 1 {
		return fmt.Errorf("%w: ElementNumberOfChannels %d", ErrMalformedHeader, h.Channels)
	}
	if _, err := elementSize(h.ElementType); err != nil {
		return err
	}
	return nil
}

// WriteTo serializes the header
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "ObjectType = Image\n")
	fmt.Fprintf(&b, "NDims = %d\n", h.NDims)
	fmt.Fprintf(&b, "BinaryData = True\n")
	fmt.Fprintf(&b, "BinaryDataByteOrderMSB = %s\n", formatBool(h.ByteOrderMSB))
	fmt.Fprintf(&b, "CompressedData = %s\n", formatBool(h.Compressed))
	fmt.Fprintf(&b, "ElementSpacing = %s\n", joinFloats(h.ElementSpacing))
	fmt.Fprintf(&b, "DimSize = %s\n", joinInts(h.DimSize))
	if h.Channels > 1 {
		fmt.Fprintf(&b, "ElementNumberOfChannels = %d\n", h.Channels)
	}
	fmt.Fprintf(&b, "ElementType = %s\n", h.ElementType)
	fmt.Fprintf(&b, "ElementDataFile = %s\n", h.ElementDataFile)

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func parseInts(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
