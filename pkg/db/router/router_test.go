package router_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mwantia/ideascube/pkg/db/router"
)

type book struct{ ID uint }

type searchEntry struct{ ID uint }

type note struct{ ID uint }

func newRouter() *router.Router {
	reg := router.NewRegistry()
	router.Register[book](reg, "library", "book")
	router.Register[searchEntry](reg, "search", "search")
	return router.New(router.DefaultClassification(), reg)
}

func TestResolve(t *testing.T) {
	r := newRouter()

	t.Run("unmapped model is durable", func(t *testing.T) {
		assert.Equal(t, router.Durable, r.Resolve("unmapped_namespace", "AnyModel"))
	})

	t.Run("search index is transient", func(t *testing.T) {
		assert.Equal(t, router.Transient, r.Resolve("search", "search"))
	})
}

func TestRouteReadWrite(t *testing.T) {
	r := newRouter()

	assert.Equal(t, router.Durable, r.RouteRead(&book{}))
	assert.Equal(t, router.Durable, r.RouteWrite(book{}))
	assert.Equal(t, router.Transient, r.RouteRead(&searchEntry{}))
	assert.Equal(t, router.Transient, r.RouteWrite([]searchEntry{}))
	assert.Equal(t, router.Durable, r.RouteWrite(&note{}), "unregistered types default to durable")
}

func TestAllowRelation(t *testing.T) {
	r := newRouter()

	assert.False(t, r.AllowRelation(&book{}, &searchEntry{}))
	assert.True(t, r.AllowRelation(&book{ID: 1}, &book{ID: 2}))
	assert.True(t, r.AllowRelation(&book{}, &note{}))
	assert.True(t, r.AllowRelation(&searchEntry{}, &searchEntry{}))
}

func TestAllowMigrate(t *testing.T) {
	r := newRouter()

	assert.True(t, r.AllowMigrate(router.Transient, "search", "search"))
	assert.False(t, r.AllowMigrate("default", "search", "search"))
	assert.True(t, r.AllowMigrate(router.Durable, "library", "book"))
	assert.False(t, r.AllowMigrate(router.Transient, "library", "book"))
	assert.True(t, r.AllowMigrateModel(router.Transient, &searchEntry{}))
}

func TestClassificationIsCopied(t *testing.T) {
	classification := router.Classification{{Namespace: "blog", Name: "content"}: router.Transient}
	r := router.New(classification, nil)

	classification[router.Key{Namespace: "blog", Name: "content"}] = router.Durable

	assert.Equal(t, router.Transient, r.Resolve("blog", "content"))
}

func TestBackends(t *testing.T) {
	r := newRouter()
	assert.Equal(t, []router.Backend{router.Durable, router.Transient}, r.Backends())

	assert.Equal(t, []router.Backend{router.Durable}, router.New(nil, nil).Backends())
}

func TestKeyOf(t *testing.T) {
	r := newRouter()

	assert.Equal(t, router.Key{Namespace: "library", Name: "book"}, r.KeyOf(&book{}))
	assert.Equal(t, router.Key{Name: "note"}, r.KeyOf(note{}))
	assert.Equal(t, router.Key{}, r.KeyOf(nil))
}

func TestRegisterConflictPanics(t *testing.T) {
	reg := router.NewRegistry()
	router.Register[book](reg, "library", "book")

	assert.NotPanics(t, func() { router.Register[book](reg, "library", "book") })
	assert.Panics(t, func() { router.Register[book](reg, "library", "other") })
	assert.Panics(t, func() { router.Register[note](reg, "library", "book") })
}
