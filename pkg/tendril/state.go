package tendril

import (
	"github.com/vango-dev/tendril/pkg/host"
	"github.com/vango-dev/tendril/pkg/reactive"
)

// nodeState is the record attached to every wired node.
type nodeState struct {
	node  host.Node
	scope *reactive.Scope
	// host is the component host owning the node, nil outside shadow trees.
	host     host.Node
	cleanups []func()
	alive    bool
}

func newNodeState(node host.Node, scope *reactive.Scope, owner host.Node) *nodeState {
	return &nodeState{node: node, scope: scope, host: owner, alive: true}
}

// onCleanup registers fn to run at teardown. On a torn-down node it runs
// immediately.
func (s *nodeState) onCleanup(fn func()) {
	if !s.alive {
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
}

// dispose runs the cleanups in reverse order, once.
func (s *nodeState) dispose() {
	if !s.alive {
		return
	}
	s.alive = false
	cleanups := s.cleanups
	s.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
