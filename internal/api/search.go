package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mwantia/ideascube/pkg/db/store"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type searchRequest struct {
	Query  string   `validate:"max=256"`
	Model  string   `validate:"omitempty,max=64"`
	Kind   string   `validate:"omitempty,max=64"`
	Lang   string   `validate:"omitempty,max=16"`
	Source string   `validate:"omitempty,max=128"`
	Tags   []string `validate:"max=16,dive,required,max=64"`
	Public bool
	Limit  int `validate:"min=0,max=1000"`
}

func parseSearchRequest(r *http.Request) (searchRequest, error) {
	query := r.URL.Query()
	req := searchRequest{
		Query:  query.Get("q"),
		Model:  query.Get("model"),
		Kind:   query.Get("kind"),
		Lang:   query.Get("lang"),
		Source: query.Get("source"),
		Limit:  100,
	}

	for _, tag := range strings.Split(query.Get("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			req.Tags = append(req.Tags, tag)
		}
	}

	if value := query.Get("public"); value != "" {
		public, err := strconv.ParseBool(value)
		if err != nil {
			return req, fmt.Errorf("%w: public must be a boolean", errBadRequest)
		}
		req.Public = public
	}
	if value := query.Get("limit"); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil {
			return req, fmt.Errorf("%w: limit must be an integer", errBadRequest)
		}
		req.Limit = limit
	}

	if err := getValidator().Struct(&req); err != nil {
		return req, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return req, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	hits, err := s.search.Search(r.Context(), store.SearchQuery{
		Text:       req.Query,
		Model:      req.Model,
		Kind:       req.Kind,
		Lang:       req.Lang,
		Source:     req.Source,
		Tags:       req.Tags,
		PublicOnly: req.Public,
		Limit:      req.Limit,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	if hits == nil {
		hits = []store.SearchHit{}
	}
	s.respondData(w, http.StatusOK, hits)
}
