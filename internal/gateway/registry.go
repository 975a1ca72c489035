package gateway

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Operation is a tool exposed through the gateway together with the scope
// a caller must hold to invoke it.
type Operation struct {
	Tool    mcp.Tool
	Scope   string
	Handler server.ToolHandlerFunc
}

// Name returns the tool name.
func (o Operation) Name() string {
	return o.Tool.Name
}

// Registry maps operation names to operations. It is filled once at
// startup and read concurrently afterwards.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds operations. Names must be unique and every operation needs
// a scope and a handler.
func (r *Registry) Register(ops ...Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, op := range ops {
		name := op.Name()
		switch {
		case name == "":
			return fmt.Errorf("operation has no name")
		case op.Scope == "":
			return fmt.Errorf("operation %s has no required scope", name)
		case op.Handler == nil:
			return fmt.Errorf("operation %s has no handler", name)
		}
		if _, exists := r.ops[name]; exists {
			return fmt.Errorf("operation %s is already registered", name)
		}
		r.ops[name] = op
	}
	return nil
}

// RequiredScope returns the scope needed to call the named operation.
func (r *Registry) RequiredScope(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.ops[name]
	if !ok {
		return "", false
	}
	return op.Scope, true
}

// Get returns the named operation.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.ops[name]
	return op, ok
}

// Operations returns all operations sorted by name.
func (r *Registry) Operations() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Name() < ops[j].Name()
	})
	return ops
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}
