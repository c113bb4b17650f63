// Package recognition runs text-recognition engines over MRZ images in a
// fixed fallback order and reports what each attempt produced.
package recognition

import (
	"context"
	"fmt"
	"image"
)

// Kind identifies what an engine is tuned for.
type Kind string

const (
	// KindDocument engines are specialized for machine-readable zones and
	// read from a file path.
	KindDocument Kind = "document"
	// KindGeneral engines are general-purpose text readers working on an
	// in-memory image.
	KindGeneral Kind = "general"
)

// Input is the image handed to an engine. Document engines read Path,
// general engines read Image.
type Input struct {
	Image image.Image
	Path  string
}

// Engine is the interface every text-recognition backend implements.
// Implementations must be safe for concurrent use.
//
//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks Engine
type Engine interface {
	// Name returns a unique identifier for this engine instance.
	Name() string

	// Kind reports whether the engine is document-specialized or general.
	Kind() Kind

	// Recognize returns the text lines found in the input, top to bottom.
	// An empty result with a nil error means the engine found nothing.
	Recognize(ctx context.Context, in Input) ([]string, error)
}

// Registry keeps the available engines in registration order. It is filled
// once at startup and read-only afterwards.
type Registry struct {
	engines []Engine
	byName  map[string]Engine
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Engine)}
}

// Register adds an engine to the registry.
func (r *Registry) Register(e Engine) error {
	name := e.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("engine %s already registered", name)
	}
	r.engines = append(r.engines, e)
	r.byName[name] = e
	return nil
}

// Get retrieves an engine by name.
func (r *Registry) Get(name string) (Engine, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// ByKind returns the engines of a kind in registration order.
func (r *Registry) ByKind(k Kind) []Engine {
	var result []Engine
	for _, e := range r.engines {
		if e.Kind() == k {
			result = append(result, e)
		}
	}
	return result
}

// All returns every registered engine in registration order.
func (r *Registry) All() []Engine {
	return append([]Engine(nil), r.engines...)
}

// Len returns the number of registered engines.
func (r *Registry) Len() int {
	return len(r.engines)
}
