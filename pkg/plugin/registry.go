package plugin

import (
	"context"
	"fmt"

	"github.com/jingkaihe/hostext/gen/extension"
	"github.com/jingkaihe/hostext/pkg/response"
)

// Registry is the two-level {kind -> {name -> plugin}} lookup (§4.6),
// pre-seeded with an empty inner map for every kind in the closed set.
// Built once at server start and read without locking thereafter; Register
// is not safe to call concurrently with Dispatch.
type Registry struct {
	plugins map[RegistryKind]map[string]Plugin
	order   []Plugin
}

// NewRegistry builds an empty registry with every closed-set kind seeded.
func NewRegistry() *Registry {
	r := &Registry{plugins: make(map[RegistryKind]map[string]Plugin, len(Kinds()))}
	for _, kind := range Kinds() {
		r.plugins[kind] = make(map[string]Plugin)
	}
	return r
}

// Register adds a plugin. It returns an error if (registry-kind,
// plugin-name) is already taken, preserving the uniqueness invariant
// (§3).
func (r *Registry) Register(p Plugin) error {
	kind := p.Registry()
	names, ok := r.plugins[kind]
	if !ok {
		return fmt.Errorf("plugin: unknown registry kind %q", kind)
	}
	if _, exists := names[p.Name()]; exists {
		return fmt.Errorf("plugin: duplicate plugin %s/%s", kind, p.Name())
	}
	names[p.Name()] = p
	r.order = append(r.order, p)
	return nil
}

// All returns every registered plugin, in registration order.
func (r *Registry) All() []Plugin {
	return r.order
}

// Routes builds the registration-time route payload (§6: registry
// payload) from every registered plugin.
func (r *Registry) Routes() extension.ExtensionRegistry {
	out := make(extension.ExtensionRegistry, len(r.plugins))
	for kind, names := range r.plugins {
		inner := make(map[string]extension.ExtensionPluginResponse, len(names))
		for name, p := range names {
			inner[name] = p.Routes()
		}
		out[string(kind)] = inner
	}
	return out
}

// Dispatch looks up (kind, name) and forwards request to the adapter's
// HandleCall. A missing kind or name is a protocol-level error (§4.6),
// distinct from an adapter-level Failure reply.
func (r *Registry) Dispatch(ctx context.Context, kind, name string, request map[string]string) (*response.Reply, error) {
	names, ok := r.plugins[RegistryKind(kind)]
	if !ok {
		return nil, fmt.Errorf("unknown registry kind %q", kind)
	}
	p, ok := names[name]
	if !ok {
		return nil, fmt.Errorf("unknown plugin %s/%s", kind, name)
	}
	return p.HandleCall(ctx, request), nil
}

// Ping calls every registered plugin's Ping and returns the first failure,
// if any. Used only by diagnostics; the protocol's own ping answers for
// the extension as a whole, not per-plugin.
func (r *Registry) Ping(ctx context.Context) error {
	for _, p := range r.order {
		if reply := p.Ping(ctx); reply.Kind() != response.KindSuccess {
			return fmt.Errorf("plugin %s/%s ping failed", p.Registry(), p.Name())
		}
	}
	return nil
}

// ShutdownAll notifies every registered plugin, isolating panics so one
// plugin's failure never prevents notifying the rest (§4.7 step 3).
func (r *Registry) ShutdownAll(ctx context.Context, reason ShutdownReason) {
	for _, p := range r.order {
		func(p Plugin) {
			defer func() { recover() }()
			p.Shutdown(ctx, reason)
		}(p)
	}
}
