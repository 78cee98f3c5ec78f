package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/testutil"
)

type recordingDeliverer struct {
	sent []Reminder
	fail map[string]bool
}

func (d *recordingDeliverer) Deliver(_ context.Context, r Reminder) error {
	if d.fail[r.TaskID] {
		return errors.New("unreachable")
	}
	d.sent = append(d.sent, r)
	return nil
}

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func remindTask(id string, at time.Time, title string) *domain.Task {
	return &domain.Task{ID: id, Description: title, Status: domain.StatusTodo, RemindAt: &at}
}

func TestSweep_DeliversDueInOrder(t *testing.T) {
	d := &recordingDeliverer{}
	s := NewScheduler(d, nil)
	ctx := context.Background()
	require.NoError(t, s.Schedule(ctx, remindTask("b", base.Add(time.Minute), "second")))
	require.NoError(t, s.Schedule(ctx, remindTask("a", base, "first")))
	require.NoError(t, s.Schedule(ctx, remindTask("c", base.Add(time.Hour), "later")))

	n, err := s.Sweep(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, d.sent, 2)
	assert.Equal(t, "a", d.sent[0].TaskID)
	assert.Equal(t, "b", d.sent[1].TaskID)

	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "c", pending[0].TaskID)

	n, err = s.Sweep(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n, "delivered reminders are not sent twice")
}

func TestSweep_FailedDeliveryStaysPending(t *testing.T) {
	d := &recordingDeliverer{fail: map[string]bool{"a": true}}
	s := NewScheduler(d, nil)
	ctx := context.Background()
	require.NoError(t, s.Schedule(ctx, remindTask("a", base, "x")))

	n, err := s.Sweep(ctx, base)
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Len(t, s.Pending(), 1)

	d.fail = nil
	n, err = s.Sweep(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDismiss(t *testing.T) {
	s := NewScheduler(&recordingDeliverer{}, nil)
	ctx := context.Background()
	require.NoError(t, s.Schedule(ctx, remindTask("a", base, "x")))
	require.NoError(t, s.Dismiss(ctx, "a"))
	assert.Empty(t, s.Pending())
	assert.Error(t, s.Schedule(ctx, remindTask("", base, "x")))
	assert.Error(t, s.Schedule(ctx, &domain.Task{ID: "b"}), "no reminder time")
}

func TestReconcile(t *testing.T) {
	d := &recordingDeliverer{}
	s := NewScheduler(d, nil)
	ctx := context.Background()
	at := base
	later := base.Add(24 * time.Hour)

	tasks := []*domain.Task{
		{ID: "a", Description: "call", Status: domain.StatusTodo, RemindAt: &at},
		{ID: "done", Description: "x", Status: domain.StatusCompleted, RemindAt: &at},
		{ID: "none", Description: "y", Status: domain.StatusTodo},
	}
	s.Reconcile(tasks)
	require.Len(t, s.Pending(), 1)

	_, err := s.Sweep(ctx, base)
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	s.Reconcile(tasks)
	assert.Empty(t, s.Pending(), "same reminder time is not rescheduled after delivery")

	tasks[0].RemindAt = &later
	s.Reconcile(tasks)
	require.Len(t, s.Pending(), 1)
	assert.True(t, s.Pending()[0].At.Equal(later))
}

func TestKeyOf(t *testing.T) {
	day := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "a", KeyOf(&domain.Task{ID: "a"}))
	assert.Equal(t, "virtual-T-2024-06-02", KeyOf(&domain.Task{ID: "virtual-T-2024-06-02", OriginalTaskID: testutil.Ptr("T"), DueDate: &day}))
	assert.Equal(t, "virtual-T-2024-06-02", KeyOf(&domain.Task{ID: "row-1", OriginalTaskID: testutil.Ptr("T"), DueDate: &day}))
}

func TestReconcile_MaterializedOccurrenceIsNotRedelivered(t *testing.T) {
	d := &recordingDeliverer{}
	s := NewScheduler(d, nil)
	ctx := context.Background()
	day := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	at := day.Add(9 * time.Hour)

	virtual := &domain.Task{ID: "virtual-T-2024-06-02", Description: "stretch", Status: domain.StatusTodo,
		RemindAt: &at, OriginalTaskID: testutil.Ptr("T"), DueDate: &day}
	s.Reconcile([]*domain.Task{virtual})
	n, err := s.Sweep(ctx, at)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// The user edits the occurrence, which persists it under a new id.
	row := &domain.Task{ID: "row-1", Description: "stretch more", Status: domain.StatusTodo,
		RemindAt: &at, OriginalTaskID: testutil.Ptr("T"), DueDate: &day}
	require.NoError(t, s.Schedule(ctx, row))
	s.Reconcile([]*domain.Task{row})
	assert.Empty(t, s.Pending())

	n, err = s.Sweep(ctx, at.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, d.sent, 1)
}

func TestReconcile_PrunesDeliveredForVanishedTasks(t *testing.T) {
	s := NewScheduler(&recordingDeliverer{}, nil)
	ctx := context.Background()

	s.Reconcile([]*domain.Task{remindTask("a", base, "x"), remindTask("b", base, "y")})
	_, err := s.Sweep(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Delivered())

	s.Reconcile([]*domain.Task{remindTask("a", base, "x")})
	assert.Equal(t, 1, s.Delivered(), "b left the task list")
	assert.Empty(t, s.Pending())

	s.Reconcile(nil)
	assert.Zero(t, s.Delivered())
}

func TestDismiss_ByTaskIDForOccurrenceRow(t *testing.T) {
	s := NewScheduler(&recordingDeliverer{}, nil)
	ctx := context.Background()
	day := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	at := day.Add(9 * time.Hour)

	require.NoError(t, s.Schedule(ctx, &domain.Task{ID: "row-1", Status: domain.StatusTodo,
		RemindAt: &at, OriginalTaskID: testutil.Ptr("T"), DueDate: &day}))
	require.Len(t, s.Pending(), 1)
	require.NoError(t, s.Dismiss(ctx, "row-1"))
	assert.Empty(t, s.Pending())
}

func TestLogDeliverer_NilLogger(t *testing.T) {
	assert.NoError(t, LogDeliverer{}.Deliver(context.Background(), Reminder{TaskID: "a"}))
}
