package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeObject struct {
	fin func()
}

func (f *fakeObject) Finalizer() func() { return f.fin }

type fixedRoots struct {
	roots []Object
}

func (f fixedRoots) Roots() []Object { return f.roots }

func TestCollectRemovesUnreachableAndQueuesFinalizer(t *testing.T) {
	h := NewHeap()
	ran := false
	obj := &fakeObject{fin: func() { ran = true }}
	h.Allocate(obj)
	assert.Equal(t, 1, h.Live())

	h.Collect(fixedRoots{})
	assert.Equal(t, 0, h.Live())

	h.DrainFinalizers(nil)
	assert.True(t, ran)
}

func TestCollectKeepsReachableObjects(t *testing.T) {
	h := NewHeap()
	obj := &fakeObject{}
	h.Allocate(obj)

	h.Collect(fixedRoots{roots: []Object{obj}})
	assert.Equal(t, 1, h.Live())
}

func TestInhibitPausesCollection(t *testing.T) {
	h := NewHeap()
	obj := &fakeObject{}
	h.Allocate(obj)

	h.Inhibit()
	h.Collect(fixedRoots{})
	assert.Equal(t, 1, h.Live(), "collection is a no-op while inhibited")

	h.Allow()
	h.Collect(fixedRoots{})
	assert.Equal(t, 0, h.Live())
}

func TestDrainFinalizersReportsPanicWithoutPropagating(t *testing.T) {
	h := NewHeap()
	obj := &fakeObject{fin: func() { panic("boom") }}
	h.Allocate(obj)
	h.Collect(fixedRoots{})

	var recovered any
	assert.NotPanics(t, func() {
		h.DrainFinalizers(func(r any) { recovered = r })
	})
	assert.Equal(t, "boom", recovered)
}
