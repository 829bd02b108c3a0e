package operations_test

import (
	"context"
	"errors"

	"github.com/0ld3ull/operator/internal/operations"
)

type fakeKillSwitch struct{ active bool }

func (k fakeKillSwitch) IsActive(ctx context.Context) (bool, error) { return k.active, nil }

type fakeDistributor struct {
	result operations.DistributeResult
	err    error
	calls  int
}

func (f *fakeDistributor) Distribute(ctx context.Context, req operations.DistributeRequest) (operations.DistributeResult, error) {
	f.calls++
	if f.err != nil {
		return operations.DistributeResult{}, f.err
	}
	return f.result, nil
}

type fakeRenderer struct {
	result operations.RenderResult
	err    error
}

func (f *fakeRenderer) CreateVideoForApproval(ctx context.Context, req operations.RenderRequest) (operations.RenderResult, error) {
	if f.err != nil {
		return operations.RenderResult{}, f.err
	}
	return f.result, nil
}

type fakeTwitterExecutor struct {
	url   string
	err   error
	calls int
	last  map[string]any
}

func (f *fakeTwitterExecutor) Execute(ctx context.Context, actionData map[string]any) (string, error) {
	f.calls++
	f.last = actionData
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeGenerator struct {
	calls int
	err   error
}

func (f *fakeGenerator) GenerateTweets(ctx context.Context, count int) error {
	f.calls++
	return f.err
}

var errBoom = errors.New("boom")
