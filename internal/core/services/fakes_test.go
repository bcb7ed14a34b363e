package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

var (
	_ driven.EmbeddingService = (*fakeEmbedding)(nil)
	_ driven.LLMService       = (*fakeLLM)(nil)
	_ driven.PromptStore      = (*fakePrompts)(nil)
	_ driven.DocumentParser   = (*fakeParser)(nil)
)

// fakeEmbedding hashes words into a small vector, unless fixed is set, in
// which case every text embeds to fixed.
type fakeEmbedding struct {
	mu      sync.Mutex
	dims    int
	fixed   []float32
	err     error
	calls   int
	batches [][]string
}

func newFakeEmbedding() *fakeEmbedding {
	return &fakeEmbedding{dims: 4}
}

func (f *fakeEmbedding) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeEmbedding) vector(text string) []float32 {
	if f.fixed != nil {
		return f.fixed
	}
	v := make([]float32, f.dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[int(h.Sum32())%f.dims]++
	}
	return v
}

func (f *fakeEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(text), nil
}

func (f *fakeEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

func (f *fakeEmbedding) Dimensions() int { return f.dims }
func (f *fakeEmbedding) ModelName() string { return "fake-embed" }
func (f *fakeEmbedding) Ping(context.Context) error { return nil }
func (f *fakeEmbedding) Close() error { return nil }

// fakeLLM returns reply and records the last chat request.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (f *fakeLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return f.reply, f.err
}

func (f *fakeLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = messages
	f.opts = opts
	return f.reply, f.err
}

func (f *fakeLLM) ModelName() string { return "fake-llm" }
func (f *fakeLLM) Ping(context.Context) error { return nil }
func (f *fakeLLM) Close() error { return nil }

type fakePrompts map[string]string

func (f fakePrompts) Load(name string) (string, error) {
	if text, ok := f[name]; ok {
		return text, nil
	}
	return "", errors.New("prompt not found: " + name)
}

func (f fakePrompts) Reload() {}

type fakeParser struct {
	parsed *domain.ParsedDocument
	err    error
}

func (f *fakeParser) Parse(_ context.Context, _ string, _ []byte) (*domain.ParsedDocument, error) {
	return f.parsed, f.err
}
