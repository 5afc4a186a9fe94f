package main

import "encoding/json"

const (
	defaultQuantity = 1
	defaultCategory = "general"
	defaultEmoji    = "🛒"
)

// ShoppingItem is one entry of the shared shopping list.
type ShoppingItem struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Category  string `json:"category"`
	Emoji     string `json:"emoji"`
	AddedAt   string `json:"added_at"`
	Completed bool   `json:"completed"`
}

// UnmarshalJSON fills the item defaults before decoding so stored objects
// missing optional fields come back the same way new items are created.
func (it *ShoppingItem) UnmarshalJSON(b []byte) error {
	type plain ShoppingItem
	p := plain{Quantity: defaultQuantity, Category: defaultCategory, Emoji: defaultEmoji}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*it = ShoppingItem(p)
	return nil
}

// AddItemRequest is the body of POST /api/add. Pointer fields tell an
// absent value apart from an explicit zero value.
type AddItemRequest struct {
	Name     string  `json:"name"`
	Quantity *int    `json:"quantity"`
	Category *string `json:"category"`
	Emoji    *string `json:"emoji"`
}

// CatalogItem is a suggested item; it carries no id or timestamp.
type CatalogItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Category string `json:"category"`
	Emoji    string `json:"emoji"`
}

// BackupRecord describes one successful upload of the list file.
type BackupRecord struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}
