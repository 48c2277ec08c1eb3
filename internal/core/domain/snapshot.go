package domain

// Snapshot aggregates catalogs, orderings and the active shopping list.
// Field order keeps the encoded JSON keys sorted.
type Snapshot struct {
	Items        map[int64]string `json:"items"`
	ShoppingList map[int64]int    `json:"shopping_list"`
	Stores       map[string]Store `json:"stores"`
}
