package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultItems(t *testing.T) {
	items := DefaultItems()

	assert.Len(t, items, 8)
	assert.Equal(t, CatalogItem{Name: "Milk", Quantity: 1, Category: "dairy", Emoji: "🥛"}, items[0])
	assert.Equal(t, CatalogItem{Name: "Cheese", Quantity: 1, Category: "dairy", Emoji: "🧀"}, items[7])

	categories := map[string]bool{}
	for _, it := range items {
		categories[it.Category] = true
	}
	for _, c := range []string{"dairy", "bakery", "fruits", "meat", "grains", "vegetables"} {
		assert.True(t, categories[c], c)
	}
}

func TestDefaultItems_ReturnsCopy(t *testing.T) {
	items := DefaultItems()
	items[0].Name = "Oat milk"

	assert.Equal(t, "Milk", DefaultItems()[0].Name)
}
