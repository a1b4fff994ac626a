// Package onnx runs a sentence-transformer exported to ONNX in-process.
package onnx

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sync/atomic"

	tokenizer "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// Config locates the model files and bounds batch memory.
type Config struct {
	ModelDir          string // holds model.onnx and tokenizer.json
	SharedLibraryPath string // libonnxruntime path, empty for the loader default
	MaxBatchTokens    int
	Pooling           string // "mean" or "cls"
	Normalize         bool
	UseCUDA           bool
}

func DefaultConfig() Config {
	return Config{
		ModelDir:       "models/all-MiniLM-L6-v2",
		MaxBatchTokens: 6000,
		Pooling:        "mean",
		Normalize:      true,
	}
}

// Embedder wraps an ONNX Runtime session and its tokenizer.
type Embedder struct {
	tok     *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
	cfg     Config
	name    string
	dim     atomic.Int64 // hidden size, known after the first inference
}

// Load initialises the ONNX environment and opens the session.
func Load(cfg Config) (*Embedder, error) {
	tok, err := pretrained.FromFile(filepath.Join(cfg.ModelDir, "tokenizer.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}

	// A failed earlier Load may leave the environment up; only tear down
	// what this call created.
	owned := !ort.IsInitialized()
	if owned {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	fail := func(err error) (*Embedder, error) {
		if owned {
			if derr := ort.DestroyEnvironment(); derr != nil {
				slog.Warn("failed to destroy onnx environment", "error", derr)
			}
		}
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return fail(fmt.Errorf("failed to create session options: %w", err))
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return fail(fmt.Errorf("failed to set graph optimization: %w", err))
	}

	if cfg.UseCUDA {
		enableCUDA(opts)
	}

	if err := opts.SetIntraOpNumThreads(0); err != nil {
		slog.Warn("failed to set onnx thread count", "error", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		filepath.Join(cfg.ModelDir, "model.onnx"),
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		opts,
	)
	if err != nil {
		return fail(fmt.Errorf("failed to create session: %w", err))
	}

	if cfg.MaxBatchTokens <= 0 {
		cfg.MaxBatchTokens = 6000
	}

	return &Embedder{
		tok:     tok,
		session: session,
		cfg:     cfg,
		name:    filepath.Base(cfg.ModelDir),
	}, nil
}

func enableCUDA(opts *ort.SessionOptions) {
	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		slog.Info("CUDA not available, using CPU", "error", err)
		return
	}
	defer cudaOpts.Destroy()

	if err := cudaOpts.Update(map[string]string{"device_id": "0"}); err != nil {
		slog.Warn("failed to update CUDA options", "error", err)
		return
	}
	if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		slog.Warn("failed to append CUDA provider", "error", err)
		return
	}
	slog.Info("CUDA execution provider enabled")
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	lengths := make([]int, len(texts))
	for i, t := range texts {
		enc, err := e.tok.EncodeSingle(t)
		if err != nil {
			return nil, fmt.Errorf("tokenization of text %d failed: %w", i, err)
		}
		lengths[i] = len(enc.GetIds())
	}

	all := make([][]float32, 0, len(texts))
	i := 0
	for i < len(texts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Grow the batch while padded size stays inside the token budget.
		start, maxLen := i, 0
		for i < len(texts) {
			next := maxLen
			if lengths[i] > next {
				next = lengths[i]
			}
			if i > start && (i-start+1)*next > e.cfg.MaxBatchTokens {
				break
			}
			maxLen = next
			i++
		}

		vectors, err := e.embedBatch(texts[start:i])
		if err != nil {
			return nil, fmt.Errorf("batch failed: %w", err)
		}
		all = append(all, vectors...)
	}

	return all, nil
}

func (e *Embedder) embedBatch(texts []string) ([][]float32, error) {
	inputs := make([]tokenizer.EncodeInput, len(texts))
	for i, t := range texts {
		inputs[i] = tokenizer.NewSingleEncodeInput(tokenizer.NewInputSequence(t))
	}

	encodings, err := e.tok.EncodeBatch(inputs, true)
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}

	maxLen := 0
	for _, enc := range encodings {
		if l := len(enc.GetIds()); l > maxLen {
			maxLen = l
		}
	}

	batchSize := len(encodings)
	inputIDs := make([]int64, batchSize*maxLen)
	attentionMask := make([]int64, batchSize*maxLen)
	tokenTypeIDs := make([]int64, batchSize*maxLen)

	for i, enc := range encodings {
		ids := enc.GetIds()
		mask := enc.GetAttentionMask()
		offset := i * maxLen
		for j := 0; j < len(ids) && j < maxLen; j++ {
			inputIDs[offset+j] = int64(ids[j])
			attentionMask[offset+j] = int64(mask[j])
		}
	}

	shape := ort.NewShape(int64(batchSize), int64(maxLen))

	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := e.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output tensor is not float32 type")
	}

	// [batch, seq, hidden]
	outShape := out.GetShape()
	seqLen := int(outShape[1])
	hidden := int(outShape[2])
	data := out.GetData()

	vectors := make([][]float32, batchSize)
	for i := 0; i < batchSize; i++ {
		base := i * seqLen * hidden
		if e.cfg.Pooling == "cls" {
			vectors[i] = make([]float32, hidden)
			copy(vectors[i], data[base:base+hidden])
		} else {
			vectors[i] = meanPool(data[base:base+seqLen*hidden], attentionMask[i*maxLen:(i+1)*maxLen], hidden)
		}
		if e.cfg.Normalize {
			normalize(vectors[i])
		}
	}

	e.recordDimension(hidden)
	return vectors, nil
}

// meanPool averages token states whose attention mask is set.
func meanPool(states []float32, mask []int64, hidden int) []float32 {
	v := make([]float32, hidden)
	count := 0
	for t, m := range mask {
		if m == 0 || (t+1)*hidden > len(states) {
			continue
		}
		row := states[t*hidden : (t+1)*hidden]
		for j, x := range row {
			v[j] += x
		}
		count++
	}
	if count > 0 {
		for j := range v {
			v[j] /= float32(count)
		}
	}
	return v
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for j := range v {
		v[j] /= norm
	}
}

// recordDimension keeps the first observed hidden size; concurrent batches
// from one model all report the same value.
func (e *Embedder) recordDimension(hidden int) {
	e.dim.CompareAndSwap(0, int64(hidden))
}

// Dimension is 0 until the first Embed call completes.
func (e *Embedder) Dimension() int {
	return int(e.dim.Load())
}

func (e *Embedder) ModelName() string {
	return e.name
}

// Close releases the session and the ONNX environment.
func (e *Embedder) Close() error {
	if e.session != nil {
		e.session.Destroy()
	}
	return ort.DestroyEnvironment()
}
