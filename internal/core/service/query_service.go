package service

import (
	"context"

	"github.com/rl1809/shopping-list/internal/core/domain"
)

// QueryService assembles read-only snapshots for clients.
type QueryService struct {
	catalog *CatalogService
	ledger  *LedgerService
}

func NewQueryService(catalog *CatalogService, ledger *LedgerService) *QueryService {
	return &QueryService{catalog: catalog, ledger: ledger}
}

func (s *QueryService) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	list, err := s.ledger.GetCurrentList(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	stores, err := s.catalog.ListStores(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	return domain.Snapshot{
		Items:        items,
		ShoppingList: list,
		Stores:       stores,
	}, nil
}
