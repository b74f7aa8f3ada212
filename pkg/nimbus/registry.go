package nimbus

import (
	"fmt"
	"sync"
)

// FunctionRegistry holds the functions a runtime serves, in registration order
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions []Function
	byName    map[string]int
}

// NewFunctionRegistry creates an empty registry
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{byName: make(map[string]int)}
}

// Register validates and adds functions. Names must be unique. Nothing is
// added unless every function is valid.
func (r *FunctionRegistry) Register(functions ...Function) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := make(map[string]bool, len(functions))
	for _, fn := range functions {
		if err := fn.Validate(); err != nil {
			return err
		}
		if _, exists := r.byName[fn.Name]; exists || batch[fn.Name] {
			return fmt.Errorf("function %s is already registered", fn.Name)
		}
		batch[fn.Name] = true
	}

	for _, fn := range functions {
		r.byName[fn.Name] = len(r.functions)
		r.functions = append(r.functions, fn)
	}
	return nil
}

// Get looks a function up by name
func (r *FunctionRegistry) Get(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[name]
	if !ok {
		return Function{}, false
	}
	return r.functions[i], true
}

// All returns every registered function
func (r *FunctionRegistry) All() []Function {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Function(nil), r.functions...)
}

// ByKind returns the functions of one trigger kind
func (r *FunctionRegistry) ByKind(kind Kind) []Function {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Function
	for _, fn := range r.functions {
		if fn.Kind == kind {
			result = append(result, fn)
		}
	}
	return result
}

// Len returns the number of registered functions
func (r *FunctionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.functions)
}
