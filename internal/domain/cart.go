package domain

import (
	"strconv"
	"time"
)

type Cart struct {
	ID                     int64      `json:"id"`
	Items                  []CartItem `json:"items"`
	Closed                 bool       `json:"closed"`
	PaymentAuthorizationID *string    `json:"payment_authorization_id,omitempty"`
	ClientSecret           *string    `json:"client_secret,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// CartItem is the stored shape of a cart entry. The JSON tags match the
// serialized items column.
type CartItem struct {
	ProductID   int64   `json:"productId"`
	Quantity    int     `json:"quantity"`
	Subcategory *string `json:"subcategory,omitempty"`
}

// FindItem returns the index of the item for productID, or -1.
func (c *Cart) FindItem(productID int64) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// CartLineItem is a cart item joined with the live product record. It is
// recomputed on every read and never persisted.
type CartLineItem struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Images      []StoredFile `json:"images,omitempty"`
	Category    string       `json:"category"`
	Subcategory *string      `json:"subcategory,omitempty"`
	Price       string       `json:"price"`
	Inventory   int          `json:"inventory"`
	Quantity    int          `json:"quantity"`
}

// SessionContext carries the cookie-derived identity of a request.
type SessionContext struct {
	CartID             string
	DeliveryPostalCode string
}

// CartIDValue parses the raw cookie value. Missing or non-numeric values
// report ok == false.
func (s SessionContext) CartIDValue() (int64, bool) {
	if s.CartID == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s.CartID, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// CookieUpdate tells the transport layer what to do with the cartId cookie
// after a mutation.
type CookieUpdate struct {
	CartID int64
	Set    bool
	Expire bool
}
