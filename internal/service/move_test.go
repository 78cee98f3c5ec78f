package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/ordering"
	"github.com/alexanderramin/tasksync/internal/repository"
	"github.com/alexanderramin/tasksync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedXYZ(t *testing.T, h *harness) {
	t.Helper()
	h.seed(t,
		testutil.NewTestTask("X", testutil.WithID("X"), testutil.WithSection("S1"), testutil.WithOrder(0)),
		testutil.NewTestTask("Y", testutil.WithID("Y"), testutil.WithSection("S1"), testutil.WithOrder(1)),
		testutil.NewTestTask("Z", testutil.WithID("Z"), testutil.WithSection("S1"), testutil.WithOrder(2)),
	)
}

func TestMove_DragFirstPastLast(t *testing.T) {
	h := newHarness(t, nil)
	seedXYZ(t, h)

	err := h.s.Move(context.Background(), ordering.MoveRequest{
		ActiveID:       "X",
		NewSectionID:   testutil.Ptr("S1"),
		OverID:         testutil.Ptr("Z"),
		IsDraggingDown: true,
	})
	require.NoError(t, err)

	stored := h.storedByID(t)
	assert.Equal(t, 0, stored["Y"].Order)
	assert.Equal(t, 1, stored["Z"].Order)
	assert.Equal(t, 2, stored["X"].Order)
	assert.Equal(t, []string{"Y", "Z", "X"}, groupIDs(h.s.Tasks(), s1()))
}

func TestMove_CrossSectionRenumbersBothGroups(t *testing.T) {
	h := newHarness(t, nil)
	seedXYZ(t, h)
	h.seed(t,
		testutil.NewTestTask("P", testutil.WithID("P"), testutil.WithSection("S2"), testutil.WithOrder(0)),
		testutil.NewTestTask("Q", testutil.WithID("Q"), testutil.WithSection("S2"), testutil.WithOrder(1)),
	)

	err := h.s.Move(context.Background(), ordering.MoveRequest{
		ActiveID:     "Y",
		NewSectionID: testutil.Ptr("S2"),
		OverID:       testutil.Ptr("Q"),
	})
	require.NoError(t, err)

	stored := h.stored(t)
	assert.Equal(t, []string{"X", "Z"}, groupIDs(stored, s1()))
	assert.Equal(t, []string{"P", "Y", "Q"}, groupIDs(stored, domain.Group{SectionID: "S2"}))
	assert.True(t, ordering.IsContiguous(stored, s1()))
	assert.True(t, ordering.IsContiguous(stored, domain.Group{SectionID: "S2"}))
}

func TestMove_ReparentUnderTask(t *testing.T) {
	h := newHarness(t, nil)
	seedXYZ(t, h)

	err := h.s.Move(context.Background(), ordering.MoveRequest{ActiveID: "Z", NewParentID: testutil.Ptr("X")})
	require.NoError(t, err)

	z := h.storedByID(t)["Z"]
	require.NotNil(t, z.ParentTaskID)
	assert.Equal(t, "X", *z.ParentTaskID)
	assert.Nil(t, z.SectionID)
	assert.Equal(t, 0, z.Order)
}

func TestMove_RejectsCycle(t *testing.T) {
	var failing *testutil.FailingStore
	h := newHarness(t, func(inner repository.TaskStore) repository.TaskStore {
		failing = testutil.NewFailingStore(inner)
		return failing
	})
	h.seed(t,
		testutil.NewTestTask("root", testutil.WithID("R")),
		testutil.NewTestTask("child", testutil.WithID("C"), testutil.WithParent("R")),
	)

	err := h.s.Move(context.Background(), ordering.MoveRequest{ActiveID: "R", NewParentID: testutil.Ptr("C")})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrCycle)
	assert.Zero(t, failing.Calls("BatchSetOrder"))
	assert.Nil(t, h.storedByID(t)["R"].ParentTaskID)
}

func TestMove_SelfDropIsNoop(t *testing.T) {
	var failing *testutil.FailingStore
	h := newHarness(t, func(inner repository.TaskStore) repository.TaskStore {
		failing = testutil.NewFailingStore(inner)
		return failing
	})
	seedXYZ(t, h)

	err := h.s.Move(context.Background(), ordering.MoveRequest{ActiveID: "Y", NewSectionID: testutil.Ptr("S1"), OverID: testutil.Ptr("Y")})
	require.NoError(t, err)
	assert.Zero(t, failing.Calls("BatchSetOrder"))
	assert.False(t, h.s.Tracker().IsMarked("Y"))
}

func TestMove_FailureSnapsBack(t *testing.T) {
	h := newHarness(t, func(inner repository.TaskStore) repository.TaskStore {
		return testutil.NewFailingStore(inner, "BatchSetOrder")
	})
	seedXYZ(t, h)

	err := h.s.Move(context.Background(), ordering.MoveRequest{
		ActiveID: "X", NewSectionID: testutil.Ptr("S1"), OverID: testutil.Ptr("Z"), IsDraggingDown: true,
	})
	require.ErrorIs(t, err, testutil.ErrInjected)

	assert.Equal(t, []string{"X", "Y", "Z"}, groupIDs(h.s.Tasks(), s1()))
	last := h.notifier.last()
	assert.False(t, last.Success)
	assert.Equal(t, "move", last.Operation)
}

func TestMove_VirtualActiveIsMaterializedFirst(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t,
		testutil.NewTestTask("daily", testutil.WithID("T"), testutil.WithRecurring(domain.RecurDaily),
			testutil.WithDueDate(date(2024, 6, 1)), testutil.WithSection("S1"), testutil.WithOrder(0)),
		testutil.NewTestTask("A", testutil.WithID("A"), testutil.WithSection("S1"), testutil.WithOrder(1)),
	)

	err := h.s.Move(context.Background(), ordering.MoveRequest{
		ActiveID:       "virtual-T-2024-06-02",
		NewSectionID:   testutil.Ptr("S1"),
		OverID:         testutil.Ptr("A"),
		IsDraggingDown: true,
	})
	require.NoError(t, err)

	stored := h.stored(t)
	rows := occurrencesOf(stored, "T")
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"T", "A", rows[0].ID}, groupIDs(stored, s1()))
	assert.True(t, ordering.IsContiguous(stored, s1()))
}

func TestMove_UnknownTask(t *testing.T) {
	h := newHarness(t, nil)
	err := h.s.Move(context.Background(), ordering.MoveRequest{ActiveID: "ghost"})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

// Every sibling group stays numbered 0..n-1 across a mixed sequence.
func TestOrderingInvariant_AcrossOperations(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	seedXYZ(t, h)

	a, err := h.s.Add(ctx, NewTask{Description: "a", SectionID: testutil.Ptr("S1"), Order: testutil.Ptr(1)})
	require.NoError(t, err)
	_, err = h.s.Add(ctx, NewTask{Description: "b", SectionID: testutil.Ptr("S2")})
	require.NoError(t, err)
	_, err = h.s.Add(ctx, NewTask{Description: "sub", ParentTaskID: testutil.Ptr("Y")})
	require.NoError(t, err)
	require.NoError(t, h.s.Move(ctx, ordering.MoveRequest{ActiveID: "Z", NewSectionID: testutil.Ptr("S2")}))
	require.NoError(t, h.s.Move(ctx, ordering.MoveRequest{ActiveID: a.ID, NewSectionID: testutil.Ptr("S1"), OverID: testutil.Ptr("X")}))
	require.NoError(t, h.s.Delete(ctx, "Y"))
	require.NoError(t, h.s.Move(ctx, ordering.MoveRequest{ActiveID: "X", NewSectionID: testutil.Ptr("S2"), OverID: testutil.Ptr("Z"), IsDraggingDown: true}))

	stored := h.stored(t)
	groups := map[domain.Group]bool{}
	for _, task := range stored {
		groups[task.Group()] = true
	}
	for g := range groups {
		assert.True(t, ordering.IsContiguous(stored, g), "group %s", g)
		assert.True(t, ordering.IsContiguous(h.s.Tasks(), g), "cached group %s", g)
	}
}
