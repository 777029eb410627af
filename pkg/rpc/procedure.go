// Package rpc exposes the service operations as named procedures, each with
// a description and a JSON schema for its arguments.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/entrhq/headline/pkg/metrics"
	"github.com/entrhq/headline/pkg/service"
)

var (
	// ErrUnknownProcedure is returned by Call for unregistered names.
	ErrUnknownProcedure = errors.New("rpc: unknown procedure")
	// ErrInvalidArguments wraps argument decoding failures.
	ErrInvalidArguments = errors.New("rpc: invalid arguments")
)

// Procedure is one callable operation.
type Procedure interface {
	// Name returns the unique identifier (e.g., "publish_article").
	Name() string

	// Description returns a human-readable description of the operation.
	Description() string

	// Schema returns the JSON schema of the argument object.
	Schema() map[string]interface{}

	// Execute decodes args and runs the operation. An error is returned only
	// when the arguments cannot be decoded; operation failures are reported
	// in the Response.
	Execute(ctx context.Context, args json.RawMessage) (service.Response, error)
}

// Descriptor is the catalog entry of a procedure.
type Descriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"inputSchema"`
}

// Registry holds the registered procedures.
type Registry struct {
	mu         sync.RWMutex
	procedures map[string]Procedure
	metrics    *metrics.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics counts calls in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{procedures: make(map[string]Procedure)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a procedure. Names must be unique.
func (r *Registry) Register(p Procedure) error {
	if p == nil {
		return fmt.Errorf("procedure cannot be nil")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("procedure name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procedures[name]; exists {
		return fmt.Errorf("procedure already registered: %s", name)
	}
	r.procedures[name] = p
	return nil
}

// Get returns the named procedure.
func (r *Registry) Get(name string) (Procedure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procedures[name]
	return p, ok
}

// Catalog lists every procedure sorted by name.
func (r *Registry) Catalog() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.procedures))
	for _, p := range r.procedures {
		out = append(out, Descriptor{Name: p.Name(), Description: p.Description(), Schema: p.Schema()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call runs the named procedure with args.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (service.Response, error) {
	p, ok := r.Get(name)
	if !ok {
		return service.Response{}, fmt.Errorf("%w: %s", ErrUnknownProcedure, name)
	}
	resp, err := p.Execute(ctx, args)
	r.metrics.ProcedureCalled(name, err == nil && resp.Success)
	return resp, err
}

// procedure adapts a typed function into a Procedure.
type procedure[T any] struct {
	name        string
	description string
	schema      map[string]interface{}
	run         func(ctx context.Context, args T) service.Response
}

func (p *procedure[T]) Name() string                   { return p.name }
func (p *procedure[T]) Description() string            { return p.description }
func (p *procedure[T]) Schema() map[string]interface{} { return p.schema }

func (p *procedure[T]) Execute(ctx context.Context, raw json.RawMessage) (service.Response, error) {
	var args T
	if err := decode(raw, &args); err != nil {
		return service.Response{}, fmt.Errorf("%w for %s: %v", ErrInvalidArguments, p.name, err)
	}
	return p.run(ctx, args), nil
}

// decode unmarshals raw into v. Empty input and null leave v untouched.
func decode(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ObjectSchema creates the JSON schema of an argument object with the given
// properties and required fields.
func ObjectSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func arrayOf(items map[string]interface{}, description string) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": items, "description": description}
}

func enum(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description, "enum": values}
}
