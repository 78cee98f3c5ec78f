package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualID_RoundTrip(t *testing.T) {
	date := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	id := VirtualID("T", date)
	assert.Equal(t, "virtual-T-2024-06-01", id)

	templateID, parsed, err := ParseVirtualID(id)
	require.NoError(t, err)
	assert.Equal(t, "T", templateID)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), parsed)
}

func TestParseVirtualID_TemplateWithDashes(t *testing.T) {
	tmpl := "0b6f3c1e-8a4e-4c39-9a55-2f1b8b6e7d10"
	templateID, _, err := ParseVirtualID(VirtualID(tmpl, testNow))
	require.NoError(t, err)
	assert.Equal(t, tmpl, templateID)
}

func TestParseVirtualID_Rejects(t *testing.T) {
	for _, id := range []string{
		"0b6f3c1e-8a4e-4c39-9a55-2f1b8b6e7d10",
		"virtual-",
		"virtual-2024-06-01",
		"virtual-T-2024-13-01",
		"virtual-T_2024-06-01",
	} {
		_, _, err := ParseVirtualID(id)
		assert.Error(t, err, id)
	}
}

func TestIsVirtualID(t *testing.T) {
	assert.True(t, IsVirtualID("virtual-T-2024-06-01"))
	assert.False(t, IsVirtualID("T"))
	assert.True(t, (&Task{ID: "virtual-x-2024-01-01"}).IsVirtual())
}
