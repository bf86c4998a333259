//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errNoCGO = errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXEmbedder stub type when built without CGO (see onnx.go for the real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO (ONNX not available).
func NewONNXEmbedder(_ string, _, _, _ int) (*ONNXEmbedder, error) {
	return nil, errNoCGO
}

// Embed always fails on the stub.
func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, errNoCGO }

// EmbedBatch always fails on the stub.
func (e *ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errNoCGO
}

// Dimensions returns 0 on the stub.
func (e *ONNXEmbedder) Dimensions() int { return 0 }

// Close is a no-op on the stub.
func (e *ONNXEmbedder) Close() error { return nil }
