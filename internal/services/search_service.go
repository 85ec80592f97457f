package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/linkup/backend/internal/models"
	"github.com/linkup/backend/internal/store"
)

const (
	searchPerFieldLimit = 10
	searchMaxResults    = 20
)

// SearchService answers prefix searches over the precomputed lowercase
// profile fields.
type SearchService struct {
	store store.Store
}

func NewSearchService(st store.Store) *SearchService {
	return &SearchService{store: st}
}

// SearchUsers runs two independent prefix queries (display name and email),
// merges them deduplicated by uid in first-seen order, and drops the caller
// from the results. The list is finite and non-restartable; no cursor is
// exposed.
func (s *SearchService) SearchUsers(ctx context.Context, callerID, query string) ([]models.PublicProfile, error) {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return nil, fmt.Errorf("%w: a non-empty query is required", ErrInvalidArgument)
	}

	byName, err := s.store.SearchProfilesByPrefix(ctx, store.FieldDisplayNameLower, term, searchPerFieldLimit)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	byEmail, err := s.store.SearchProfilesByPrefix(ctx, store.FieldEmailLower, term, searchPerFieldLimit)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	seen := make(map[string]struct{}, len(byName)+len(byEmail))
	results := make([]models.PublicProfile, 0, len(byName)+len(byEmail))
	for _, p := range append(byName, byEmail...) {
		if p.UID == callerID {
			continue
		}
		if _, ok := seen[p.UID]; ok {
			continue
		}
		seen[p.UID] = struct{}{}
		results = append(results, p.Public())
		if len(results) == searchMaxResults {
			break
		}
	}
	return results, nil
}
