//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/tsunagu/pkg/utils"
)

// ONNXEmbedder uses ONNX Runtime to produce sentence embeddings. It requires
// CGO and the onnxruntime shared library. The model is expected to take BERT
// inputs and emit a pooled sentence vector named "output".
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	cache      *Cache
	tokenizer  Tokenizer
	// Tensors are allocated once; Run() reads updated input data in place.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder creates an ONNX embedder. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens, cacheSize int) (*ONNXEmbedder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	tokenizer := &SimpleTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", maxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), tokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	var cache *Cache
	if cacheSize > 0 {
		cache = NewCache(cacheSize)
	}
	return &ONNXEmbedder{
		session:             session,
		dimensions:          dimensions,
		maxTokens:           maxTokens,
		cache:               cache,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Embed returns a unit-normalized embedding for text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if emb, ok := e.cache.Get(text); ok {
			return emb, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("ONNX inference failed: %w", err)
	}
	emb := make([]float32, e.dimensions)
	copy(emb, e.outputTensor.GetData())
	e.mu.Unlock()

	utils.NormalizeL2(emb)
	if e.cache != nil {
		e.cache.Set(text, emb)
	}
	return emb, nil
}

// EmbedBatch embeds each text sequentially.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor} {
		if t != nil {
			t.Destroy()
		}
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
	}
	return nil
}
