package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestJobLifecycle(t *testing.T) {
	j, ctx := Start(context.Background(), "j1", "merge")
	require.True(t, j.Running())

	events, _ := j.Subscribe()
	j.Report("merge", 1, 3)
	j.Report("merge", 2, 3)
	j.Finish(nil)

	got := drain(events)
	require.Len(t, got, 4)
	assert.Equal(t, StatusInProgress, got[0].Status)
	assert.Equal(t, Progress{Step: "merge", Done: 2, Total: 3}, got[2].Progress)
	assert.Equal(t, StatusDone, got[3].Status)
	assert.Empty(t, got[3].Error)

	assert.ErrorIs(t, ctx.Err(), context.Canceled, "context is released on finish")
	assert.False(t, j.Running())
	assert.False(t, j.Cancel())
}

func TestJobCancel(t *testing.T) {
	j, ctx := Start(context.Background(), "j2", "pdf-to-images")
	require.True(t, j.Cancel())
	<-ctx.Done()

	j.Finish(ctx.Err())
	ev := j.Snapshot()
	assert.Equal(t, StatusCanceled, ev.Status)
	assert.Equal(t, context.Canceled.Error(), ev.Error)
}

func TestJobFailed(t *testing.T) {
	j, _ := Start(context.Background(), "j3", "compress")
	j.Finish(errors.New("boom"))
	j.Report("late", 1, 1)
	j.Finish(nil)

	ev := j.Snapshot()
	assert.Equal(t, StatusFailed, ev.Status)
	assert.Equal(t, "boom", ev.Error)
	assert.Equal(t, Progress{}, ev.Progress)
}

func TestSubscribeAfterFinish(t *testing.T) {
	j, _ := Start(context.Background(), "j4", "merge")
	j.Reporter("merge")(5, 5)
	j.Finish(nil)

	got := drain(mustSubscribe(j))
	require.Len(t, got, 1)
	assert.Equal(t, StatusDone, got[0].Status)
	assert.Equal(t, 5, got[0].Progress.Done)
}

func TestUnsubscribe(t *testing.T) {
	j, _ := Start(context.Background(), "j5", "merge")
	events, unsubscribe := j.Subscribe()
	unsubscribe()
	unsubscribe()

	got := drain(events)
	assert.Len(t, got, 1)

	j.Report("merge", 1, 2)
	j.Finish(nil)
}

func mustSubscribe(j *Job) <-chan Event {
	ch, _ := j.Subscribe()
	return ch
}
