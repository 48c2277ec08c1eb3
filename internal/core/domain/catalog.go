package domain

// Item is a catalog entry. Descriptions are unique and items are never deleted.
type Item struct {
	ID          int64
	Description string
}

// Store is a named shop together with its item ordering.
// Field order keeps the encoded JSON keys sorted.
type Store struct {
	Order map[int64]int `json:"order"`
	ID    int64         `json:"storeid"`
}

// UnorderedPosition marks items that sort after every numbered item of a store.
const UnorderedPosition = -1

// OrderEntry is one item of an order list before it is resolved to an item id.
type OrderEntry struct {
	Description string
	Position    int
}
