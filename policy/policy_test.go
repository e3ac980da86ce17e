package policy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/execkit/execkit/model/task"
)

func TestNilPolicy(t *testing.T) {
	var p *Policy
	assert.False(t, p.IsBlocked("anything"))
	aTask := task.New("t")
	assert.Same(t, aTask, p.Apply(aTask))
}

func TestIsBlocked(t *testing.T) {
	p := &Policy{BlockList: []string{"Indexing", "bulk-scan"}}
	assert.True(t, p.IsBlocked("indexing"))
	assert.True(t, p.IsBlocked("BULK-SCAN"))
	assert.False(t, p.IsBlocked("analysis"))
}

func TestApplyDefaults(t *testing.T) {
	p := &Policy{DefaultTimeout: time.Second, DefaultRetry: task.DefaultRetryPolicy()}

	bare := task.New("bare")
	applied := p.Apply(bare)
	assert.NotSame(t, bare, applied)
	assert.Equal(t, time.Second, applied.Timeout)
	assert.NotNil(t, applied.Retry)
	assert.Zero(t, bare.Timeout, "the original task is never mutated")

	explicit := task.New("explicit", task.WithTimeout(time.Minute), task.WithRetry(task.SingleAttempt()))
	assert.Same(t, explicit, p.Apply(explicit))
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	p := &Policy{DefaultTimeout: time.Second}
	ctx := WithPolicy(context.Background(), p)
	assert.Same(t, p, FromContext(ctx))
}
