package main

var catalog = []CatalogItem{
	{Name: "Milk", Quantity: 1, Category: "dairy", Emoji: "🥛"},
	{Name: "Bread", Quantity: 1, Category: "bakery", Emoji: "🍞"},
	{Name: "Eggs", Quantity: 12, Category: "dairy", Emoji: "🥚"},
	{Name: "Bananas", Quantity: 6, Category: "fruits", Emoji: "🍌"},
	{Name: "Chicken", Quantity: 1, Category: "meat", Emoji: "🍗"},
	{Name: "Rice", Quantity: 1, Category: "grains", Emoji: "🍚"},
	{Name: "Tomatoes", Quantity: 4, Category: "vegetables", Emoji: "🍅"},
	{Name: "Cheese", Quantity: 1, Category: "dairy", Emoji: "🧀"},
}

// DefaultItems returns a copy of the suggested items catalog.
func DefaultItems() []CatalogItem {
	cp := make([]CatalogItem, len(catalog))
	copy(cp, catalog)
	return cp
}
