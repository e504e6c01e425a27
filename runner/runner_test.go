package runner

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineRunsImmediately(t *testing.T) {
	ran := false
	require.True(t, NewInline().Post(func() { ran = true }))
	assert.True(t, ran)
	assert.NoError(t, NewInline().Close())
}

func TestSerialPreservesOrder(t *testing.T) {
	q := NewSerial()
	assert.True(t, q.Serial())

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, q.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	require.NoError(t, q.Close())

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestPoolStartsInSubmissionOrder(t *testing.T) {
	q := NewPool(4)
	assert.Equal(t, 4, q.Workers())
	assert.False(t, q.Serial())

	var mu sync.Mutex
	var started []int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		q.Post(func() {
			defer wg.Done()
			mu.Lock()
			started = append(started, i)
			mu.Unlock()
			time.Sleep(time.Millisecond)
		})
	}
	wg.Wait()
	require.NoError(t, q.Close())
	assert.Len(t, started, 20)
}

func TestPoolRunsInParallel(t *testing.T) {
	q := NewPool(2)
	defer q.Close()

	release := make(chan struct{})
	var running atomic.Int32
	both := make(chan struct{})
	for i := 0; i < 2; i++ {
		q.Post(func() {
			if running.Add(1) == 2 {
				close(both)
			}
			<-release
		})
	}
	select {
	case <-both:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not run concurrently")
	}
	close(release)
}

func TestCloseDrainsAndRejects(t *testing.T) {
	q := NewSerial()
	var count atomic.Int32
	block := make(chan struct{})
	started := make(chan struct{})
	q.Post(func() {
		close(started)
		<-block
	})
	<-started
	for i := 0; i < 5; i++ {
		q.Post(func() { count.Add(1) })
	}
	assert.Equal(t, 5, q.Pending())

	done := make(chan struct{})
	go func() {
		_ = q.Close()
		close(done)
	}()
	close(block)
	<-done

	assert.Equal(t, int32(5), count.Load())
	assert.False(t, q.Post(func() {}))
	assert.False(t, q.Post(nil))
	assert.NoError(t, q.Close())
}

func TestPostFromTask(t *testing.T) {
	q := NewSerial()
	done := make(chan struct{})
	q.Post(func() {
		q.Post(func() { close(done) })
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested post never ran")
	}
	require.NoError(t, q.Close())
}
