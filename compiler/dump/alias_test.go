package dump

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamesUnique(t *testing.T) {
	n := newNames(64)
	assert.Equal(t, "school", n.alloc("school"))
	assert.Equal(t, "school_2", n.alloc("school"))
	assert.Equal(t, "school_3", n.alloc("school"))
	assert.Equal(t, "program", n.alloc("program"))
}

func TestNamesTruncate(t *testing.T) {
	n := newNames(8)
	assert.Equal(t, "departme", n.alloc("department"))
	assert.Equal(t, "depart_2", n.alloc("department"))
}

func TestTruncateRuneBoundary(t *testing.T) {
	assert.Equal(t, "éé", truncate("ééé", 5))
	assert.Equal(t, "ééé", truncate("ééé", 6))
}
