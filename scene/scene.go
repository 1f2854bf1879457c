// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package scene implements the node tree a game organises its logic in.
// Nodes live in an arena and refer to each other through stable handles,
// never pointers, so the tree can be reshaped without invalidating
// references held elsewhere.
package scene

import (
	"errors"
	"fmt"

	"github.com/berylllium/lise/container"
)

// None is the handle equivalent of a nil pointer.
const None Handle = -1

// Handle addresses a node in its scene. It stays valid until the node
// is removed.
type Handle int

// Attachment is the behaviour hook of a node. EnteredTree runs when the
// node is inserted, Tick once per scene tick, LeftTree when the node or
// one of its ancestors is removed.
type Attachment interface {
	EnteredTree()
	Tick()
	LeftTree()
}

type node struct {
	name string

	parent      Handle
	firstChild  Handle
	nextSibling Handle

	attachment Attachment
}

// New creates a scene holding only its root node.
func New() *Scene {
	s := &Scene{}
	s.root = Handle(s.nodes.Insert(node{
		name:        "root",
		parent:      None,
		firstChild:  None,
		nextSibling: None,
	}))
	return s
}

// Scene is an ordered tree of named nodes.
type Scene struct {
	nodes container.FreeList[node]
	root  Handle
}

// Root returns the handle of the root node.
func (s *Scene) Root() Handle {
	return s.root
}

// Len returns the number of nodes in the tree, the root included.
func (s *Scene) Len() int {
	return s.nodes.Len()
}

// Insert adds a named node as the last child of parent. The attachment
// may be nil; otherwise its EnteredTree callback runs before Insert
// returns.
func (s *Scene) Insert(parent Handle, name string, attachment Attachment) (Handle, error) {
	if s.node(parent) == nil {
		return None, fmt.Errorf("no node at handle %d to insert under", parent)
	}

	h := Handle(s.nodes.Insert(node{
		name:        name,
		parent:      parent,
		firstChild:  None,
		nextSibling: None,
		attachment:  attachment,
	}))

	// Children keep insertion order, so the new node goes to the end of
	// the sibling chain.
	p := s.node(parent)
	if p.firstChild == None {
		p.firstChild = h
	} else {
		last := p.firstChild
		for s.node(last).nextSibling != None {
			last = s.node(last).nextSibling
		}
		s.node(last).nextSibling = h
	}

	if attachment != nil {
		attachment.EnteredTree()
	}
	return h, nil
}

// Remove detaches the node at h and frees its whole subtree. Every
// attachment in the subtree gets its LeftTree callback before any slot
// is reused.
func (s *Scene) Remove(h Handle) error {
	if h == s.root {
		return errors.New("cannot remove the root node")
	}
	n := s.node(h)
	if n == nil {
		return fmt.Errorf("no node at handle %d to remove", h)
	}

	parent := s.node(n.parent)
	if parent.firstChild == h {
		parent.firstChild = n.nextSibling
	} else {
		sibling := parent.firstChild
		for s.node(sibling).nextSibling != h {
			sibling = s.node(sibling).nextSibling
		}
		s.node(sibling).nextSibling = n.nextSibling
	}

	doomed := s.subtree(h)
	for _, d := range doomed {
		if a := s.node(d).attachment; a != nil {
			a.LeftTree()
		}
	}
	for _, d := range doomed {
		s.nodes.Remove(int(d))
	}
	return nil
}

// Name returns the name of the node at h. The second return reports
// whether the handle is live.
func (s *Scene) Name(h Handle) (string, bool) {
	n := s.node(h)
	if n == nil {
		return "", false
	}
	return n.name, true
}

// Children returns the handles of the direct children of h in insertion
// order.
func (s *Scene) Children(h Handle) []Handle {
	n := s.node(h)
	if n == nil {
		return nil
	}

	var children []Handle
	for c := n.firstChild; c != None; c = s.node(c).nextSibling {
		children = append(children, c)
	}
	return children
}

// Walk visits every node depth first, parents before children and
// siblings in insertion order.
func (s *Scene) Walk(visit func(h Handle, name string)) {
	stack := []Handle{s.root}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := s.node(h)
		visit(h, n.name)

		children := s.Children(h)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Tick runs every attachment's Tick callback in Walk order.
func (s *Scene) Tick() {
	s.Walk(func(h Handle, name string) {
		if a := s.node(h).attachment; a != nil {
			a.Tick()
		}
	})
}

// subtree collects h and all its descendants depth first.
func (s *Scene) subtree(h Handle) []Handle {
	var out []Handle
	stack := []Handle{h}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, top)

		children := s.Children(top)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

func (s *Scene) node(h Handle) *node {
	if h == None {
		return nil
	}
	return s.nodes.Get(int(h))
}
