package models

import "github.com/mwantia/ideascube/pkg/db/router"

// Register adds every persistent model to reg under its namespace and name.
func Register(reg *router.Registry) {
	router.Register[Book](reg, "library", "book")
	router.Register[BookSpecimen](reg, "library", "bookspecimen")
	router.Register[Content](reg, "blog", "content")
	router.Register[Document](reg, "mediacenter", "document")
	router.Register[Search](reg, "search", "search")
}

// NewRegistry returns a registry holding every persistent model.
func NewRegistry() *router.Registry {
	reg := router.NewRegistry()
	Register(reg)
	return reg
}

// All returns a zero value of every persistent model, for migrations.
func All() []any {
	return []any{
		&Book{},
		&BookSpecimen{},
		&Content{},
		&Document{},
		&Search{},
	}
}
