// Package filter runs WebAssembly image filters over finished pieces.
//
// A filter module exports alloc(len) ptr, dealloc(ptr, len) and
// grayscale(inPtr, inLen, outParams) len. The input is a PNG; outParams
// receives the little-endian pointer and length of the output PNG.
//
// The WasmEdge runtime needs cgo and libwasmedge, so it is only compiled
// with the wasmedge build tag. Without it Open returns ErrUnavailable.
package filter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
)

// ErrUnavailable is returned by Open in builds without WasmEdge.
var ErrUnavailable = errors.New("wasm filters need a build with the wasmedge tag")

// entry is the export that transforms one image.
const entry = "grayscale"

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decodePNG(b []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// decodeParams reads the output pointer and length the filter wrote.
func decodeParams(b []byte) (ptr, n int32, err error) {
	if len(b) < 8 {
		return 0, 0, fmt.Errorf("short output params: %d bytes", len(b))
	}
	ptr = int32(binary.LittleEndian.Uint32(b[0:4]))
	n = int32(binary.LittleEndian.Uint32(b[4:8]))
	if ptr < 0 || n <= 0 {
		return 0, 0, fmt.Errorf("invalid output buffer ptr=%d len=%d", ptr, n)
	}
	return ptr, n, nil
}
