package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"globaldata/internal/country/models"
	"globaldata/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map store for unit tests and dependency-free
// runs. Keys are lowercased names, matching the Postgres unique index.
type InMemory struct {
	mu        sync.RWMutex
	countries map[string]models.Country
	nextID    int64
}

// NewInMemory constructs an empty in-memory country store.
func NewInMemory() *InMemory {
	return &InMemory{countries: make(map[string]models.Country), nextID: 1}
}

func (s *InMemory) UpsertBatch(_ context.Context, countries []models.Country) (UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res UpsertResult
	for _, c := range countries {
		key := strings.ToLower(c.Name)
		if existing, ok := s.countries[key]; ok {
			c.ID = existing.ID
			res.Updated++
		} else {
			c.ID = s.nextID
			s.nextID++
			res.Inserted++
		}
		s.countries[key] = c
	}
	return res, nil
}

func (s *InMemory) List(_ context.Context, q models.ListQuery) ([]models.Country, error) {
	s.mu.RLock()
	all := make([]models.Country, 0, len(s.countries))
	for _, c := range s.countries {
		if q.Region != "" {
			if c.Region == nil || !strings.Contains(strings.ToLower(*c.Region), strings.ToLower(q.Region)) {
				continue
			}
		}
		all = append(all, c)
	}
	s.mu.RUnlock()

	sortCountries(all, q.SortBy)

	if q.Skip >= len(all) {
		return nil, nil
	}
	all = all[q.Skip:]
	if q.Limit > 0 && q.Limit < len(all) {
		all = all[:q.Limit]
	}
	return all, nil
}

func (s *InMemory) FindByName(_ context.Context, name string) (*models.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.countries[strings.ToLower(name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.countries), nil
}

func (s *InMemory) TopByEstimatedGDP(_ context.Context, n int) ([]models.Country, error) {
	s.mu.RLock()
	all := make([]models.Country, 0, len(s.countries))
	for _, c := range s.countries {
		if c.EstimatedGDP != nil {
			all = append(all, c)
		}
	}
	s.mu.RUnlock()

	sortCountries(all, models.SortByEstimatedGDP)
	if n < len(all) {
		all = all[:n]
	}
	return all, nil
}

// sortCountries orders the slice the way the Postgres store does: name
// ascending, numeric columns descending with a name tiebreak.
func sortCountries(countries []models.Country, sortBy string) {
	switch sortBy {
	case models.SortByName:
		sort.Slice(countries, func(i, j int) bool {
			return countries[i].Name < countries[j].Name
		})
	case models.SortByEstimatedGDP:
		sort.Slice(countries, func(i, j int) bool {
			gi, gj := countries[i].EstimatedGDP, countries[j].EstimatedGDP
			switch {
			case gi == nil && gj == nil:
				return countries[i].Name < countries[j].Name
			case gi == nil:
				return false
			case gj == nil:
				return true
			case *gi != *gj:
				return *gi > *gj
			default:
				return countries[i].Name < countries[j].Name
			}
		})
	default:
		sort.Slice(countries, func(i, j int) bool {
			if countries[i].Population != countries[j].Population {
				return countries[i].Population > countries[j].Population
			}
			return countries[i].Name < countries[j].Name
		})
	}
}
