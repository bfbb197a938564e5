package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type counter struct {
	n int
}

func TestSharedUseCount(t *testing.T) {
	s := NewShared(counter{n: 1})
	assert.Equal(t, 1, s.UseCount())

	c1 := s.Clone()
	c2 := s.Clone()
	assert.Equal(t, 3, s.UseCount())
	assert.Equal(t, 3, c1.UseCount())
	assert.Equal(t, 3, c2.UseCount())

	c1.Drop()
	assert.Equal(t, 2, s.UseCount())

	c2.Drop()
	s.Drop()
	assert.Equal(t, 0, s.UseCount())
}

func TestSharedEqual(t *testing.T) {
	a := NewShared(counter{n: 1})
	b := NewShared(counter{n: 1})
	c := a.Clone()

	assert.True(t, a.Equal(c))
	assert.False(t, a.Equal(b))
}

func TestSharedGetMutates(t *testing.T) {
	s := NewShared(counter{n: 1})
	clone := s.Clone()

	s.Get().n = 42
	assert.Equal(t, 42, clone.Get().n)
}

type widget interface {
	Widget() int
}

type concreteWidget struct {
	v int
}

func (w *concreteWidget) Widget() int { return w.v }

func TestSharedAsPreservesRefcount(t *testing.T) {
	s := NewShared(concreteWidget{v: 7})
	view := SharedAs[concreteWidget, widget](s, func(c *concreteWidget) widget { return c })

	assert.Equal(t, 2, s.UseCount())
	assert.Equal(t, 2, view.UseCount())
	assert.Equal(t, 7, (*view.Get()).Widget())

	view.Drop()
	assert.Equal(t, 1, s.UseCount())
}
