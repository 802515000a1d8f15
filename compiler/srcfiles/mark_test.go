package srcfiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnion(t *testing.T) {
	const text = "/school{name}"
	a := NewMark(text, 1, 7)
	b := NewMark(text, 8, 12)
	assert.Equal(t, NewMark(text, 1, 12), Union(a, b))
	assert.Equal(t, NewMark(text, 1, 12), Union(Mark{}, b, a))
	assert.Equal(t, a, Union(a, NewMark("other", 0, 5)))
	assert.True(t, Union().IsEmpty())
}

func TestExcerpt(t *testing.T) {
	m := NewMark("/{nosuchcolumn}", 2, 14)
	assert.Equal(t, "nosuchcolumn", m.Fragment())
	assert.Equal(t, []string{"/{nosuchcolumn}", "  ^^^^^^^^^^^^"}, m.Excerpt())

	text := "/school\n?code=\n'x'"
	m = NewMark(text, 8, 13)
	assert.Equal(t, []string{"?code=", "^^^^^"}, m.Excerpt())
	m = NewMark(text, 9, 17)
	assert.Equal(t, []string{"?code=", " ^^^^^"}, m.Excerpt())

	m = NewMark("/{'é'+}", 6, 7)
	assert.Equal(t, []string{"/{'é'+}", "     ^"}, m.Excerpt())
}

func TestErrorMessage(t *testing.T) {
	err := New(BindError, NewMark("/{nosuchcolumn}", 2, 14), "unrecognized attribute '%s'", "nosuchcolumn")
	expected := "bind error: unrecognized attribute 'nosuchcolumn' at line 1, column 3:\n" +
		"    /{nosuchcolumn}\n" +
		"      ^^^^^^^^^^^^"
	assert.Equal(t, expected, err.Error())

	var wrapped error = err
	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, BindError, e.Kind)
	assert.True(t, Is(wrapped, BindError))
	assert.False(t, Is(wrapped, ParseError))
}
