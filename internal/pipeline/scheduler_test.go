package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/mohamedkhairy/stock-isolator/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls int32
	err   error
}

func (f *fakeRunner) Run(ctx context.Context) (*Result, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Report: &report.Report{RunID: string(rune('0' + n))}}, nil
}

func TestRefresher(t *testing.T) {
	runner := &fakeRunner{}
	r := NewRefresher(runner, "0 0 0 1 1 *")

	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	require.NotNil(t, r.Latest())
	assert.Equal(t, "1", r.Latest().RunID)
	assert.True(t, r.Status().HasReport)

	runner.err = errors.New("store down")
	r.Refresh(context.Background())

	// The previous report survives a failed refresh
	assert.Equal(t, "1", r.Latest().RunID)
	assert.Equal(t, "store down", r.Status().LastError)
	assert.Equal(t, int32(2), atomic.LoadInt32(&runner.calls))
}

func TestRefresher_InvalidSchedule(t *testing.T) {
	r := NewRefresher(&fakeRunner{}, "not a schedule")
	assert.Error(t, r.Start(context.Background()))
}
