package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestApplyStatus_TodoToCompleted(t *testing.T) {
	task := &Task{Status: StatusTodo}
	require.NoError(t, task.ApplyStatus(StatusCompleted, testNow))
	assert.Equal(t, StatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, testNow, *task.CompletedAt)
	assert.Equal(t, testNow, task.UpdatedAt)
}

func TestApplyStatus_CompletedToArchivedKeepsTimestamp(t *testing.T) {
	earlier := testNow.Add(-time.Hour)
	task := &Task{Status: StatusCompleted, CompletedAt: &earlier}
	require.NoError(t, task.ApplyStatus(StatusArchived, testNow))
	assert.Equal(t, StatusArchived, task.Status)
	assert.Equal(t, earlier, *task.CompletedAt, "should not overwrite existing CompletedAt")
}

func TestApplyStatus_ArchivedWithoutTimestampGetsOne(t *testing.T) {
	task := &Task{Status: StatusCompleted}
	require.NoError(t, task.ApplyStatus(StatusArchived, testNow))
	require.NotNil(t, task.CompletedAt)
}

func TestApplyStatus_ReopenClearsTimestamp(t *testing.T) {
	done := testNow.Add(-time.Hour)
	task := &Task{Status: StatusCompleted, CompletedAt: &done}
	require.NoError(t, task.ApplyStatus(StatusTodo, testNow))
	assert.Nil(t, task.CompletedAt)

	task = &Task{Status: StatusArchived, CompletedAt: &done}
	require.NoError(t, task.ApplyStatus(StatusSkipped, testNow))
	assert.Nil(t, task.CompletedAt)
}

func TestApplyStatus_Invalid(t *testing.T) {
	task := &Task{Status: StatusTodo}
	err := task.ApplyStatus("doing", testNow)
	require.Error(t, err)
	assert.Equal(t, StatusTodo, task.Status, "status should not change")
}

func TestIsTemplate(t *testing.T) {
	cases := []struct {
		name     string
		task     Task
		template bool
	}{
		{"plain", Task{RecurringType: RecurNone}, false},
		{"empty recurrence", Task{}, false},
		{"weekly template", Task{RecurringType: RecurWeekly}, true},
		{"occurrence", Task{RecurringType: RecurWeekly, OriginalTaskID: strPtr("T")}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.template, tc.task.IsTemplate(), tc.name)
	}
}

func TestGroupOf_NilAndEmptyAgree(t *testing.T) {
	a := GroupOf(nil, strPtr("S1"))
	b := (&Task{SectionID: strPtr("S1")}).Group()
	assert.Equal(t, a, b)
	assert.Nil(t, a.Parent())
	require.NotNil(t, a.Section())
	assert.Equal(t, "S1", *a.Section())
}

func TestClone_DoesNotAlias(t *testing.T) {
	due := testNow
	orig := &Task{ID: "a", SectionID: strPtr("S1"), DueDate: &due}
	c := orig.Clone()
	*c.SectionID = "S2"
	*c.DueDate = due.AddDate(0, 0, 1)
	assert.Equal(t, "S1", *orig.SectionID)
	assert.Equal(t, testNow, *orig.DueDate)
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Task{Description: "  "}).Validate())
	assert.Error(t, (&Task{Description: "x", Priority: "meh"}).Validate())
	assert.Error(t, (&Task{ID: "a", Description: "x", ParentTaskID: strPtr("a")}).Validate())
	assert.NoError(t, (&Task{ID: "a", Description: "x", Priority: PriorityHigh}).Validate())
}

func TestTaskPatch_ApplyTo(t *testing.T) {
	remind := testNow.Add(2 * time.Hour)
	task := &Task{Description: "old", Status: StatusTodo, CategoryID: strPtr("c1")}
	desc := "new"
	status := StatusCompleted
	patch := TaskPatch{Description: &desc, Status: &status, RemindAt: &remind, ClearCategory: true}

	require.NoError(t, patch.ApplyTo(task, testNow))
	assert.Equal(t, "new", task.Description)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)
	assert.Nil(t, task.CategoryID)
	assert.Equal(t, remind, *task.RemindAt)
}

func TestTaskPatch_DueDateTruncated(t *testing.T) {
	due := time.Date(2025, 6, 20, 17, 30, 0, 0, time.UTC)
	task := &Task{Description: "x"}
	require.NoError(t, TaskPatch{DueDate: &due}.ApplyTo(task, testNow))
	assert.Equal(t, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), *task.DueDate)
}

func TestTaskPatch_RejectsBlankDescription(t *testing.T) {
	blank := " "
	task := &Task{Description: "keep"}
	require.Error(t, TaskPatch{Description: &blank}.ApplyTo(task, testNow))
	assert.Equal(t, "keep", task.Description)
}

func TestTaskPatch_IsEmpty(t *testing.T) {
	assert.True(t, TaskPatch{}.IsEmpty())
	assert.False(t, StatusPatch(StatusCompleted).IsEmpty())
	assert.False(t, TaskPatch{ClearDueDate: true}.IsEmpty())
}
