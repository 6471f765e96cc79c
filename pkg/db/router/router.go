package router

import (
	"reflect"
	"sort"
)

// Backend identifies a physical database.
type Backend string

const (
	// Durable is the backend whose files live under the backed up data root.
	Durable Backend = "default"
	// Transient holds rebuildable data that is never part of a backup.
	Transient Backend = "transient"
)

// Key identifies a persistent model by namespace and model name.
type Key struct {
	Namespace string
	Name      string
}

func (k Key) String() string {
	return k.Namespace + "/" + k.Name
}

// Classification maps model keys to the backend serving them.
// Keys that are absent resolve to Durable.
type Classification map[Key]Backend

// DefaultClassification keeps the search index out of backups.
func DefaultClassification() Classification {
	return Classification{
		{Namespace: "search", Name: "search"}: Transient,
	}
}

// Router decides which backend serves reads, writes, relations and
// migrations of a model. It is immutable once built and safe for
// concurrent use.
type Router struct {
	routes   map[Key]Backend
	registry *Registry
}

// New copies the classification so later changes to the map do not
// leak into routing decisions.
func New(classification Classification, registry *Registry) *Router {
	routes := make(map[Key]Backend, len(classification))
	for key, backend := range classification {
		routes[key] = backend
	}

	if registry == nil {
		registry = NewRegistry()
	}

	return &Router{
		routes:   routes,
		registry: registry,
	}
}

// Resolve returns the backend of a model key, Durable when unmapped.
func (r *Router) Resolve(namespace, name string) Backend {
	if backend, ok := r.routes[Key{Namespace: namespace, Name: name}]; ok {
		return backend
	}
	return Durable
}

// KeyOf returns the registered key of a model value or type.
// Unregistered types get an empty namespace and their lower-cased type name.
func (r *Router) KeyOf(model any) Key {
	return r.registry.KeyOf(model)
}

func (r *Router) resolveModel(model any) Backend {
	key := r.KeyOf(model)
	return r.Resolve(key.Namespace, key.Name)
}

// RouteRead returns the backend used to read instances of model.
func (r *Router) RouteRead(model any) Backend {
	return r.resolveModel(model)
}

// RouteWrite returns the backend used to write instances of model.
func (r *Router) RouteWrite(model any) Backend {
	return r.resolveModel(model)
}

// AllowRelation reports whether a and b may reference each other.
// Both must live in the same backend.
func (r *Router) AllowRelation(a, b any) bool {
	return r.resolveModel(a) == r.resolveModel(b)
}

// AllowMigrate reports whether the schema of namespace/name belongs on backend.
func (r *Router) AllowMigrate(backend Backend, namespace, name string) bool {
	return r.Resolve(namespace, name) == backend
}

// AllowMigrateModel is AllowMigrate for a registered model value.
func (r *Router) AllowMigrateModel(backend Backend, model any) bool {
	return r.resolveModel(model) == backend
}

// Backends lists every backend that can receive a model, Durable first.
func (r *Router) Backends() []Backend {
	seen := map[Backend]bool{Durable: true}
	var others []Backend
	for _, backend := range r.routes {
		if !seen[backend] {
			seen[backend] = true
			others = append(others, backend)
		}
	}

	sort.Slice(others, func(i, j int) bool { return others[i] < others[j] })
	return append([]Backend{Durable}, others...)
}

func indirectType(model any) reflect.Type {
	var t reflect.Type
	switch v := model.(type) {
	case nil:
		return nil
	case reflect.Type:
		t = v
	default:
		t = reflect.TypeOf(model)
	}

	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t
}
