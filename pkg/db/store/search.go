package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mwantia/ideascube/pkg/db/models"
	"github.com/mwantia/ideascube/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchQuery filters the search index. Empty fields do not filter.
type SearchQuery struct {
	Text       string
	Model      string
	Kind       string
	Lang       string
	Source     string
	Tags       []string
	PublicOnly bool
	Limit      int
}

// SearchHit is an index row with its relevancy for the query text
type SearchHit struct {
	models.Search
	Rank float64 `json:"rank"`
}

// index writes the search row of model when it is searchable
func (s *RoutedStore) index(ctx context.Context, model any) error {
	searchable, ok := model.(models.Searchable)
	if !ok {
		return nil
	}
	if !searchable.IsIndexable() {
		return s.deindex(ctx, model)
	}

	row := models.NewSearch(s.router.KeyOf(model).Name, searchable)
	backend := s.router.RouteWrite(&row)
	db, err := s.session(ctx, backend)
	if err != nil {
		return err
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model"}, {Name: "model_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"public", "text", "lang", "kind", "tags", "source"}),
	}).Create(&row).Error
	metrics.RecordDBOperation(string(backend), "index", err)
	if err != nil {
		return fmt.Errorf("failed to index %s %d: %w", row.Model, row.ModelID, err)
	}
	return nil
}

// deindex removes the search row of model when it is searchable
func (s *RoutedStore) deindex(ctx context.Context, model any) error {
	searchable, ok := model.(models.Searchable)
	if !ok {
		return nil
	}

	name := s.router.KeyOf(model).Name
	backend := s.router.RouteWrite(&models.Search{})
	db, err := s.session(ctx, backend)
	if err != nil {
		return err
	}

	err = db.Where("model = ? AND model_id = ?", name, searchable.IndexID()).Delete(&models.Search{}).Error
	metrics.RecordDBOperation(string(backend), "deindex", err)
	if err != nil {
		return fmt.Errorf("failed to deindex %s %d: %w", name, searchable.IndexID(), err)
	}
	return nil
}

// Search queries the index. Every word of the text must appear in the
// indexed text and every tag must be attached. Hits are ordered by rank.
func (s *RoutedStore) Search(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	backend := s.router.RouteRead(&models.Search{})
	db, err := s.session(ctx, backend)
	if err != nil {
		return nil, err
	}

	query := db.Model(&models.Search{})
	words := strings.Fields(strings.ToLower(q.Text))
	for _, word := range words {
		query = query.Where("LOWER(text) LIKE ? ESCAPE '\\'", "%"+escapeLike(word)+"%")
	}
	for _, tag := range q.Tags {
		query = query.Where("tags LIKE ? ESCAPE '\\'", "%|"+escapeLike(strings.ToLower(tag))+"|%")
	}
	if q.Model != "" {
		query = query.Where("model = ?", q.Model)
	}
	if q.Kind != "" {
		query = query.Where("kind = ?", q.Kind)
	}
	if q.Lang != "" {
		query = query.Where("lang = ?", q.Lang)
	}
	if q.Source != "" {
		query = query.Where("source = ?", q.Source)
	}
	if q.PublicOnly {
		query = query.Where("public = ?", true)
	}

	var rows []models.Search
	err = query.Order("model, model_id").Find(&rows).Error
	metrics.RecordDBOperation(string(backend), "search", err)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := rank(rows, words)
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// rank scores each row by the hits of every word, weighted down by how
// often the word occurs across all rows.
func rank(rows []models.Search, words []string) []SearchHit {
	hits := make([]SearchHit, len(rows))
	counts := make([][]int, len(rows))
	totals := make([]int, len(words))

	for i, row := range rows {
		text := strings.ToLower(row.Text)
		counts[i] = make([]int, len(words))
		for j, word := range words {
			counts[i][j] = strings.Count(text, word)
			totals[j] += counts[i][j]
		}
	}

	for i, row := range rows {
		hits[i] = SearchHit{Search: row}
		for j := range words {
			if totals[j] > 0 {
				hits[i].Rank += float64(counts[i][j]) / float64(totals[j])
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Rank > hits[j].Rank
	})
	return hits
}

func escapeLike(value string) string {
	return strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_").Replace(value)
}

// Reindex drops the whole index and rebuilds it from the durable rows.
// It returns the number of indexed rows per model.
func (s *RoutedStore) Reindex(ctx context.Context) (map[string]int, error) {
	backend := s.router.RouteWrite(&models.Search{})
	db, err := s.session(ctx, backend)
	if err != nil {
		return nil, err
	}

	err = db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Search{}).Error
	metrics.RecordDBOperation(string(backend), "reindex", err)
	if err != nil {
		return nil, fmt.Errorf("failed to clear search index: %w", err)
	}

	indexed := map[string]int{}
	for name, reindex := range map[string]func(context.Context, *RoutedStore) (int, error){
		s.router.KeyOf(&models.Book{}).Name:     reindexModel[models.Book],
		s.router.KeyOf(&models.Content{}).Name:  reindexModel[models.Content],
		s.router.KeyOf(&models.Document{}).Name: reindexModel[models.Document],
	} {
		count, err := reindex(ctx, s)
		if err != nil {
			return indexed, err
		}
		indexed[name] = count
		s.log.Info("Indexed %d %s rows", count, name)
	}
	return indexed, nil
}

func reindexModel[T any, P interface {
	*T
	models.Searchable
}](ctx context.Context, s *RoutedStore) (int, error) {
	rows, err := List[T](ctx, s, ListOptions{Order: "id"})
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range rows {
		model := P(&rows[i])
		if !model.IsIndexable() {
			continue
		}
		if err := s.index(ctx, model); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
