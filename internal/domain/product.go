package domain

import "time"

type StoredFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Product struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Images      []StoredFile `json:"images,omitempty"`
	Category    string       `json:"category"`
	Subcategory *string      `json:"subcategory,omitempty"`
	Price       string       `json:"price"`
	Inventory   int          `json:"inventory"`
	Rating      int          `json:"rating"`
	Tags        []string     `json:"tags,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// LineItem overlays quantity on the product for display.
func (p Product) LineItem(quantity int) CartLineItem {
	return CartLineItem{
		ID:          p.ID,
		Name:        p.Name,
		Images:      p.Images,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Price:       p.Price,
		Inventory:   p.Inventory,
		Quantity:    quantity,
	}
}
