package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternerDeduplicates(t *testing.T) {
	in := NewInterner()
	a := in.Intern("hello")
	b := in.Intern("hello")
	assert.Same(t, a, b, "same content interns to the same pointer")
}

func TestStringEqualByContentEvenUninterned(t *testing.T) {
	a := NewString("abc")
	b := NewString("abc")
	assert.NotSame(t, a, b)
	assert.True(t, a.Equal(b))
}

func TestStringLen(t *testing.T) {
	s := NewString("hello")
	assert.Equal(t, 5, s.Len())
}
