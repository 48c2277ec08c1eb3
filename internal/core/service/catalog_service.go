package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/rl1809/shopping-list/internal/core/domain"
	"github.com/rl1809/shopping-list/internal/port"
)

// MaxNameLength is the longest item description or store name, in characters.
const MaxNameLength = 255

// CatalogService maintains items, stores and per-store orderings.
type CatalogService struct {
	db port.DatabaseRepository
}

func NewCatalogService(db port.DatabaseRepository) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) EnsureItem(ctx context.Context, description string) (int64, error) {
	ids, err := s.EnsureItems(ctx, []string{description})
	if err != nil {
		return 0, err
	}
	return ids[description], nil
}

// EnsureItems creates all missing items or none of them. Descriptions are
// compared in Unicode NFC form; the result is keyed by the descriptions as given.
func (s *CatalogService) EnsureItems(ctx context.Context, descriptions []string) (map[string]int64, error) {
	normalized := make([]string, len(descriptions))
	for i, d := range descriptions {
		n, err := normalizeName("description", "item description", d)
		if err != nil {
			return nil, err
		}
		normalized[i] = n
	}

	ids, err := s.db.EnsureItems(ctx, normalized)
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(descriptions))
	for i, d := range descriptions {
		result[d] = ids[normalized[i]]
	}
	return result, nil
}

func (s *CatalogService) ListItems(ctx context.Context) (map[int64]string, error) {
	return s.db.ListItems(ctx)
}

func (s *CatalogService) EnsureStore(ctx context.Context, name string) (int64, error) {
	n, err := normalizeName("storename", "store name", name)
	if err != nil {
		return 0, err
	}
	return s.db.EnsureStore(ctx, n)
}

func normalizeName(field, what, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", domain.NewValidationError(field, "%s must not be empty", what)
	}
	n := norm.NFC.String(name)
	if utf8.RuneCountInString(n) > MaxNameLength {
		return "", domain.NewValidationError(field, "%s longer than %d characters", what, MaxNameLength)
	}
	return n, nil
}

func (s *CatalogService) ResetOrder(ctx context.Context, storeID int64) error {
	if storeID <= 0 {
		return domain.NewValidationError("storeid", "store id must be positive, got %d", storeID)
	}
	return s.db.ResetStoreOrder(ctx, storeID)
}

// SetOrder adds ordering rows. Call ResetOrder first to replace an ordering.
func (s *CatalogService) SetOrder(ctx context.Context, storeID int64, order map[int64]int) error {
	if storeID <= 0 {
		return domain.NewValidationError("storeid", "store id must be positive, got %d", storeID)
	}
	return s.db.SetStoreOrder(ctx, storeID, order)
}

func (s *CatalogService) ListStores(ctx context.Context) (map[string]domain.Store, error) {
	return s.db.ListStores(ctx)
}

// ImportStoreOrder replaces the ordering of storeName with entries, creating the
// store and any unknown items. The old ordering survives a failed import.
func (s *CatalogService) ImportStoreOrder(ctx context.Context, storeName string, entries []domain.OrderEntry) (int64, error) {
	storeID, err := s.EnsureStore(ctx, storeName)
	if err != nil {
		return 0, err
	}

	descriptions := make([]string, 0, len(entries))
	for _, e := range entries {
		descriptions = append(descriptions, e.Description)
	}

	ids, err := s.EnsureItems(ctx, descriptions)
	if err != nil {
		return 0, err
	}

	order := make(map[int64]int, len(entries))
	for _, e := range entries {
		id := ids[e.Description]
		if _, ok := order[id]; ok {
			continue
		}
		order[id] = e.Position
	}

	if err := s.db.ReplaceStoreOrder(ctx, storeID, order); err != nil {
		return 0, fmt.Errorf("replace order of store %q: %w", storeName, err)
	}
	return storeID, nil
}
