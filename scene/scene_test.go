package scene_test

import (
	"strings"
	"testing"

	"github.com/berylllium/lise/scene"
)

// recorder journals its lifecycle callbacks into a shared log.
type recorder struct {
	name   string
	events *[]string
}

func (r *recorder) EnteredTree() {
	*r.events = append(*r.events, r.name+" entered")
}

func (r *recorder) Tick() {
	*r.events = append(*r.events, r.name+" tick")
}

func (r *recorder) LeftTree() {
	*r.events = append(*r.events, r.name+" left")
}

func walkNames(s *scene.Scene) string {
	var names []string
	s.Walk(func(h scene.Handle, name string) {
		names = append(names, name)
	})
	return strings.Join(names, ",")
}

func TestInsertBuildsOrderedTree(t *testing.T) {
	s := scene.New()

	a, err := s.Insert(s.Root(), "a", nil)
	if err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if _, err := s.Insert(s.Root(), "b", nil); err != nil {
		t.Fatalf("insert b: %v", err)
	}
	if _, err := s.Insert(a, "a1", nil); err != nil {
		t.Fatalf("insert a1: %v", err)
	}

	if got := walkNames(s); got != "root,a,a1,b" {
		t.Errorf("expected walk order root,a,a1,b, got %s", got)
	}
	if s.Len() != 4 {
		t.Errorf("expected 4 nodes, got %d", s.Len())
	}
	if children := s.Children(s.Root()); len(children) != 2 {
		t.Errorf("expected the root to have 2 children, got %d", len(children))
	}
}

func TestInsertRejectsDeadParent(t *testing.T) {
	s := scene.New()

	if _, err := s.Insert(scene.None, "orphan", nil); err == nil {
		t.Error("expected inserting under a dead handle to fail")
	}
	if _, err := s.Insert(scene.Handle(42), "orphan", nil); err == nil {
		t.Error("expected inserting under an unknown handle to fail")
	}
}

func TestRemoveDetachesSubtree(t *testing.T) {
	s := scene.New()
	a, _ := s.Insert(s.Root(), "a", nil)
	s.Insert(a, "a1", nil)
	a2, _ := s.Insert(a, "a2", nil)
	s.Insert(s.Root(), "b", nil)

	if err := s.Remove(a); err != nil {
		t.Fatalf("remove a: %v", err)
	}

	if got := walkNames(s); got != "root,b" {
		t.Errorf("expected walk order root,b after removal, got %s", got)
	}
	if _, live := s.Name(a); live {
		t.Error("expected the removed handle to be dead")
	}
	if _, live := s.Name(a2); live {
		t.Error("expected descendant handles to die with their parent")
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 nodes after removal, got %d", s.Len())
	}
}

func TestRemoveMiddleSiblingKeepsChain(t *testing.T) {
	s := scene.New()
	s.Insert(s.Root(), "a", nil)
	b, _ := s.Insert(s.Root(), "b", nil)
	s.Insert(s.Root(), "c", nil)

	if err := s.Remove(b); err != nil {
		t.Fatalf("remove b: %v", err)
	}

	if got := walkNames(s); got != "root,a,c" {
		t.Errorf("expected walk order root,a,c, got %s", got)
	}
}

func TestRemoveRootFails(t *testing.T) {
	s := scene.New()

	if err := s.Remove(s.Root()); err == nil {
		t.Error("expected removing the root to fail")
	}
	if err := s.Remove(scene.Handle(42)); err == nil {
		t.Error("expected removing an unknown handle to fail")
	}
}

func TestAttachmentLifecycle(t *testing.T) {
	var events []string
	s := scene.New()

	a, _ := s.Insert(s.Root(), "a", &recorder{name: "a", events: &events})
	s.Insert(a, "a1", &recorder{name: "a1", events: &events})

	s.Tick()
	if err := s.Remove(a); err != nil {
		t.Fatalf("remove a: %v", err)
	}

	got := strings.Join(events, ",")
	want := "a entered,a1 entered,a tick,a1 tick,a left,a1 left"
	if got != want {
		t.Errorf("expected lifecycle %q, got %q", want, got)
	}

	// The tree is empty of attachments now, a tick must be a no-op.
	events = events[:0]
	s.Tick()
	if len(events) != 0 {
		t.Errorf("expected no callbacks after removal, got %v", events)
	}
}
