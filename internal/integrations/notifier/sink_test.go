package notifier

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "t1"}, nil
}

func TestAsynqSink_Deliver(t *testing.T) {
	q := &fakeEnqueuer{}
	sink := newAsynqSink(q, "notifications", 10)

	event := domain.StatusChangedEvent{BookingID: 3, FromStatus: domain.StatusPending, ToStatus: domain.StatusConfirmed, ActorID: 22, Version: 2}
	require.NoError(t, sink.Deliver(context.Background(), event))

	require.Len(t, q.tasks, 1)
	assert.Equal(t, TypeBookingStatusChanged, q.tasks[0].Type())

	var decoded domain.StatusChangedEvent
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &decoded))
	assert.Equal(t, event.BookingID, decoded.BookingID)
	assert.Equal(t, domain.StatusConfirmed, decoded.ToStatus)
}

func TestAsynqSink_DuplicateIsDelivered(t *testing.T) {
	sink := newAsynqSink(&fakeEnqueuer{err: asynq.ErrTaskIDConflict}, "notifications", 10)
	assert.NoError(t, sink.Deliver(context.Background(), domain.StatusChangedEvent{BookingID: 3}))
}
