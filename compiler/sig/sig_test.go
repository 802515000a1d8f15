package sig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccepts(t *testing.T) {
	assert.True(t, Add.Accepts(2))
	assert.False(t, Add.Accepts(1))
	assert.True(t, Head.Accepts(1))
	assert.True(t, Head.Accepts(2))
	assert.False(t, Head.Accepts(3))
	assert.True(t, And.Accepts(5))
	assert.True(t, Today.Accepts(0))
	assert.False(t, Today.Accepts(1))
}

func TestString(t *testing.T) {
	assert.Equal(t, "at(op,index,length?)", At.String())
	assert.Equal(t, "and(ops*)", And.String())
	assert.True(t, Exists.Aggregate)
	assert.True(t, Exists.Predicate)
}
