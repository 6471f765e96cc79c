package router

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Registry is the startup table of persistent types and their keys.
type Registry struct {
	mutex sync.RWMutex
	keys  map[reflect.Type]Key
	types map[Key]reflect.Type
}

func NewRegistry() *Registry {
	return &Registry{
		keys:  make(map[reflect.Type]Key),
		types: make(map[Key]reflect.Type),
	}
}

// Register records T under namespace/name. Registering the same type or
// key twice with a different counterpart panics, as it is a programming error.
func Register[T any](reg *Registry, namespace, name string) {
	reg.register(reflect.TypeOf((*T)(nil)).Elem(), Key{Namespace: namespace, Name: name})
}

func (reg *Registry) register(t reflect.Type, key Key) {
	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	if existing, ok := reg.keys[t]; ok && existing != key {
		panic(fmt.Sprintf("router: type %s already registered as %s", t, existing))
	}
	if existing, ok := reg.types[key]; ok && existing != t {
		panic(fmt.Sprintf("router: key %s already registered for %s", key, existing))
	}

	reg.keys[t] = key
	reg.types[key] = t
}

// KeyOf accepts a value, a pointer, a slice of values or a reflect.Type.
func (reg *Registry) KeyOf(model any) Key {
	t := indirectType(model)
	if t == nil {
		return Key{}
	}

	reg.mutex.RLock()
	key, ok := reg.keys[t]
	reg.mutex.RUnlock()

	if ok {
		return key
	}
	return Key{Name: strings.ToLower(t.Name())}
}

// Keys returns every registered key.
func (reg *Registry) Keys() []Key {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()

	keys := make([]Key, 0, len(reg.types))
	for key := range reg.types {
		keys = append(keys, key)
	}
	return keys
}
