package memory_test

import (
	"context"
	"errors"
	"sync"

	"github.com/Dev-solder124/genAI/analyzer"
	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/vectorindex"
)

// fakeAnalyzer returns a fixed result or error.
type fakeAnalyzer struct {
	result analyzer.Result
	err    error
	calls  int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, exch core.Exchange, recent []core.Turn) (analyzer.Result, error) {
	f.calls++
	if f.err != nil {
		return analyzer.Result{}, f.err
	}
	return f.result, nil
}

// failingEmbedder always errors.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding backend down")
}

func (failingEmbedder) Dimensions() int { return 32 }

// flakyIndex wraps a real index and fails the first failUpserts upsert
// calls, plus all queries while queryDown is set.
type flakyIndex struct {
	vectorindex.Index

	mu          sync.Mutex
	failUpserts int
	upsertCalls int
	queryDown   bool
}

func (f *flakyIndex) Upsert(ctx context.Context, dp vectorindex.Datapoint) error {
	f.mu.Lock()
	f.upsertCalls++
	fail := f.failUpserts > 0
	if fail {
		f.failUpserts--
	}
	f.mu.Unlock()
	if fail {
		return core.ErrVectorIndexUnavailable
	}
	return f.Index.Upsert(ctx, dp)
}

func (f *flakyIndex) Query(ctx context.Context, ownerID string, vector []float32, limit int) ([]vectorindex.Match, error) {
	f.mu.Lock()
	down := f.queryDown
	f.mu.Unlock()
	if down {
		return nil, core.ErrVectorIndexUnavailable
	}
	return f.Index.Query(ctx, ownerID, vector, limit)
}
