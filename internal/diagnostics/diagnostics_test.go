package diagnostics

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Unlimited(t *testing.T) {
	c := NewCollector(0)
	assert.False(t, c.HasErrors())

	ok := c.Add(Diagnostic{Category: CategoryResolutionMissing, Message: "a"}, Diagnostic{Message: "b"})
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.HasErrors())
	assert.False(t, c.Full())
}

func TestCollector_Cap(t *testing.T) {
	c := NewCollector(2)
	require.True(t, c.Add(Diagnostic{Message: "1"}))
	require.False(t, c.Add(Diagnostic{Message: "2"}, Diagnostic{Message: "3"}))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, c.Dropped())
	assert.True(t, c.Full())
	assert.False(t, c.Add(Diagnostic{Message: "4"}))
	assert.Equal(t, 2, c.Dropped())
	assert.Equal(t, 4, c.Total())
}

func TestCollector_ConcurrentAddIsSorted(t *testing.T) {
	c := NewCollector(0)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(Diagnostic{
				Category: CategoryUnknownExport,
				Message:  "m",
				Location: Location{Path: fmt.Sprintf("/src/f%02d.js", i), Line: 1},
			})
		}(i)
	}
	wg.Wait()

	diags := c.Diagnostics()
	require.Len(t, diags, 50)
	for i := 1; i < len(diags); i++ {
		assert.Less(t, diags[i-1].Location.Path, diags[i].Location.Path)
	}
}

func TestLocation_String(t *testing.T) {
	assert.Equal(t, "/a.js", Location{Path: "/a.js"}.String())
	assert.Equal(t, "/a.js:3", Location{Path: "/a.js", Line: 3}.String())
	assert.Equal(t, "/a.js:3:7", Location{Path: "/a.js", Line: 3, Column: 7}.String())
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		Category: CategoryDetectedCycle,
		Message:  "x is not initialized",
		Location: Location{Path: "/b.js", Line: 2, Column: 1},
	}
	assert.Equal(t, "/b.js:2:1 bundler/detected-cycle: x is not initialized", d.String())
}
