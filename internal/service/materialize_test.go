package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/ordering"
	"github.com/alexanderramin/tasksync/internal/recurrence"
	"github.com/alexanderramin/tasksync/internal/repository"
	"github.com/alexanderramin/tasksync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklyTemplate() *domain.Task {
	return testutil.NewTestTask("review week", testutil.WithID("T"),
		testutil.WithRecurring(domain.RecurWeekly), testutil.WithDueDate(date(2024, 5, 25)),
		testutil.WithSection("S1"), testutil.WithOrder(0))
}

func occurrencesOf(tasks []*domain.Task, templateID string) []*domain.Task {
	var out []*domain.Task
	for _, t := range tasks {
		if t.OriginalTaskID != nil && *t.OriginalTaskID == templateID {
			out = append(out, t)
		}
	}
	return out
}

func TestUpdate_VirtualOccurrenceCompletes(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, weeklyTemplate())

	got, err := h.s.Update(ctx, "virtual-T-2024-06-01", domain.StatusPatch(domain.StatusCompleted))
	require.NoError(t, err)
	assert.False(t, domain.IsVirtualID(got.ID))

	rows := occurrencesOf(h.stored(t), "T")
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, got.ID, row.ID)
	assert.Equal(t, domain.StatusCompleted, row.Status)
	assert.NotNil(t, row.CompletedAt)
	assert.Equal(t, date(2024, 6, 1), *row.DueDate)
	assert.Equal(t, "review week", row.Description)
	assert.Equal(t, "S1", *row.SectionID)

	for _, task := range h.s.Occurrences(recurrence.NewWindow(date(2024, 6, 1), date(2024, 6, 1))) {
		assert.NotEqual(t, "virtual-T-2024-06-01", task.ID, "materialized date is no longer synthesized")
	}
	next := h.s.Occurrences(recurrence.NewWindow(date(2024, 6, 8), date(2024, 6, 8)))
	var virtualIDs []string
	for _, task := range next {
		if task.IsVirtual() {
			virtualIDs = append(virtualIDs, task.ID)
		}
	}
	assert.Equal(t, []string{"virtual-T-2024-06-08"}, virtualIDs)

	backing, err := h.s.Task("virtual-T-2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, row.ID, backing.ID)
}

func TestMaterialize_TwiceCreatesOneRow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, weeklyTemplate())

	first, err := h.s.Materialize(ctx, "virtual-T-2024-06-01", domain.TaskPatch{})
	require.NoError(t, err)
	second, err := h.s.Materialize(ctx, "virtual-T-2024-06-01", domain.TaskPatch{})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, occurrencesOf(h.stored(t), "T"), 1)
}

func TestMaterialize_ConcurrentCallsCreateOneRow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, weeklyTemplate())

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			row, err := h.s.Materialize(ctx, "virtual-T-2024-06-01", domain.TaskPatch{})
			if assert.NoError(t, err) {
				ids[i] = row.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, occurrencesOf(h.stored(t), "T"), 1)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestMaterialize_PlacesRowAfterTemplate(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t,
		weeklyTemplate(),
		testutil.NewTestTask("A", testutil.WithID("A"), testutil.WithSection("S1"), testutil.WithOrder(1)),
		testutil.NewTestTask("B", testutil.WithID("B"), testutil.WithSection("S1"), testutil.WithOrder(2)),
	)

	row, err := h.s.Materialize(context.Background(), "virtual-T-2024-06-01", domain.TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, 1, row.Order)

	stored := h.stored(t)
	assert.Equal(t, []string{"T", row.ID, "A", "B"}, groupIDs(stored, s1()))
	assert.True(t, ordering.IsContiguous(stored, s1()))
	assert.Equal(t, []string{"T", row.ID, "A", "B"}, groupIDs(h.s.Tasks(), s1()))
	assert.True(t, ordering.IsContiguous(h.s.Tasks(), s1()))
}

func TestMaterialize_SecondPatchUpdatesExistingRow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, weeklyTemplate())

	_, err := h.s.Materialize(ctx, "virtual-T-2024-06-01", domain.TaskPatch{Notes: testutil.Ptr("first")})
	require.NoError(t, err)
	got, err := h.s.Update(ctx, "virtual-T-2024-06-01", domain.TaskPatch{Notes: testutil.Ptr("second")})
	require.NoError(t, err)
	assert.Equal(t, "second", got.Notes)

	rows := occurrencesOf(h.stored(t), "T")
	require.Len(t, rows, 1)
	assert.Equal(t, "second", rows[0].Notes)
}

func TestMaterialize_InsertFailureLeavesNoRow(t *testing.T) {
	h := newHarness(t, func(inner repository.TaskStore) repository.TaskStore {
		return testutil.NewFailingStore(inner, "Insert")
	})
	h.seed(t, weeklyTemplate())

	_, err := h.s.Update(context.Background(), "virtual-T-2024-06-01", domain.StatusPatch(domain.StatusCompleted))
	require.ErrorIs(t, err, testutil.ErrInjected)

	assert.Empty(t, occurrencesOf(h.s.Tasks(), "T"), "half-materialized row is dropped by the forced refresh")
	assert.Empty(t, occurrencesOf(h.stored(t), "T"))
	occ, err := h.s.Task("virtual-T-2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTodo, occ.Status)
}

func TestMaterialize_Validation(t *testing.T) {
	h := newHarness(t, nil)
	plain := testutil.NewTestTask("plain", testutil.WithID("P"))
	h.seed(t, weeklyTemplate(), plain)
	ctx := context.Background()

	_, err := h.s.Materialize(ctx, "virtual-T-garbage", domain.TaskPatch{})
	assert.ErrorIs(t, err, ErrInvalidVirtualID)

	_, err = h.s.Materialize(ctx, "virtual-P-2024-06-01", domain.TaskPatch{})
	assert.ErrorIs(t, err, ErrNotRecurring)

	_, err = h.s.Materialize(ctx, "virtual-T-2024-06-02", domain.TaskPatch{})
	assert.ErrorIs(t, err, ErrInvalidVirtualID, "not a weekly date")

	_, err = h.s.Materialize(ctx, "virtual-T-2024-05-25", domain.TaskPatch{})
	assert.ErrorIs(t, err, ErrInvalidVirtualID, "anchor date belongs to the template row")

	_, err = h.s.Materialize(ctx, "virtual-T-2024-06-01", domain.TaskPatch{Description: testutil.Ptr(" ")})
	assert.ErrorIs(t, err, ErrEmptyDescription)

	assert.Len(t, h.stored(t), 2)
}
