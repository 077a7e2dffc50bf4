package loop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostAndFlush(t *testing.T) {
	l := New()
	var order []int
	l.Post(func() {
		order = append(order, 1)
		l.Post(func() { order = append(order, 3) })
	})
	l.Post(func() { order = append(order, 2) })

	assert.Equal(t, 3, l.Flush())
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestGoCompletesOnLoop(t *testing.T) {
	l := New()
	result := make(chan string, 1)
	var got string
	l.Go(func() func() {
		v := "done"
		result <- v
		return func() { got = v }
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Settle(ctx))
	assert.Equal(t, "done", got)
	assert.Equal(t, 0, l.Pending())
}

func TestPanicHandler(t *testing.T) {
	var recovered []any
	l := New(WithPanicHandler(func(r any) { recovered = append(recovered, r) }))
	l.Post(func() { panic("boom") })
	l.Post(func() {})

	assert.Equal(t, 2, l.Flush())
	assert.Equal(t, []any{"boom"}, recovered)

	l.Go(func() func() { panic(errors.New("async")) })
	require.NoError(t, l.Settle(context.Background()))
	require.Len(t, recovered, 2)
}

func TestSettleHonorsContext(t *testing.T) {
	l := New()
	block := make(chan struct{})
	l.Go(func() func() {
		<-block
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Settle(ctx), context.Canceled)
	close(block)
	require.NoError(t, l.Settle(context.Background()))
}

func TestManualClock(t *testing.T) {
	start := time.Unix(0, 0)
	c := NewManualClock(start)
	var fired []string

	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "b") })
	c.AfterFunc(50*time.Millisecond, func() {
		fired = append(fired, "a")
		c.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a2") })
	})
	stopped := c.AfterFunc(70*time.Millisecond, func() { fired = append(fired, "never") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	c.Advance(60 * time.Millisecond)
	assert.Equal(t, []string{"a", "a2"}, fired)
	assert.Equal(t, start.Add(60*time.Millisecond), c.Now())

	c.Advance(40 * time.Millisecond)
	assert.Equal(t, []string{"a", "a2", "b"}, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestRealClockPostsToLoop(t *testing.T) {
	l := New()
	fired := make(chan struct{})
	l.Clock().AfterFunc(time.Millisecond, func() { close(fired) })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go func() {
		<-fired
		cancel()
	}()
	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
