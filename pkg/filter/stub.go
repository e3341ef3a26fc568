//go:build !wasmedge

package filter

import "image"

// Pool is unusable without WasmEdge; Open always fails.
type Pool struct{}

func Open(string, int) (*Pool, error) { return nil, ErrUnavailable }

func (*Pool) Apply(image.Image) (image.Image, error) { return nil, ErrUnavailable }

func (*Pool) Close() {}
