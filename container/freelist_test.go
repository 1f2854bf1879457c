package container_test

import (
	"testing"

	"github.com/berylllium/lise/container"
)

func TestInsertAssignsStableIndices(t *testing.T) {
	list := container.NewFreeList[string](4)

	a := list.Insert("a")
	b := list.Insert("b")
	c := list.Insert("c")

	if a != 0 || b != 1 || c != 2 {
		t.Errorf("expected indices 0,1,2, got %d,%d,%d", a, b, c)
	}
	if list.Len() != 3 {
		t.Errorf("expected length 3, got %d", list.Len())
	}
	if got := list.Get(b); got == nil || *got != "b" {
		t.Errorf("expected \"b\" at index %d, got %v", b, got)
	}
}

func TestRemoveFreesSlotForReuse(t *testing.T) {
	var list container.FreeList[string]

	list.Insert("a")
	b := list.Insert("b")
	c := list.Insert("c")

	if !list.Remove(b) {
		t.Error("expected removal of a live element to succeed")
	}
	if list.Get(b) != nil {
		t.Error("expected a removed slot to read as empty")
	}
	if list.Len() != 2 {
		t.Errorf("expected length 2 after removal, got %d", list.Len())
	}

	d := list.Insert("d")
	if d != b {
		t.Errorf("expected the freed slot %d to be reused, got %d", b, d)
	}
	if got := list.Get(c); got == nil || *got != "c" {
		t.Error("expected neighbouring elements to survive removal")
	}
}

func TestRemoveRejectsDeadIndices(t *testing.T) {
	var list container.FreeList[int]
	idx := list.Insert(7)

	if list.Remove(-1) {
		t.Error("expected removal of a negative index to fail")
	}
	if list.Remove(42) {
		t.Error("expected removal past the end to fail")
	}
	if !list.Remove(idx) {
		t.Error("expected first removal to succeed")
	}
	if list.Remove(idx) {
		t.Error("expected second removal of the same index to fail")
	}
}

func TestGetAllowsInPlaceMutation(t *testing.T) {
	var list container.FreeList[int]
	idx := list.Insert(1)

	*list.Get(idx) = 99

	if got := list.Get(idx); *got != 99 {
		t.Errorf("expected mutation through Get to stick, got %d", *got)
	}
}

func TestEachSkipsFreedSlots(t *testing.T) {
	var list container.FreeList[string]
	list.Insert("a")
	b := list.Insert("b")
	list.Insert("c")
	list.Remove(b)

	var visited []string
	list.Each(func(idx int, value *string) {
		visited = append(visited, *value)
	})

	if len(visited) != 2 || visited[0] != "a" || visited[1] != "c" {
		t.Errorf("expected to visit a,c in order, got %v", visited)
	}
}
