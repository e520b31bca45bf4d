package domain

type AuthorizationStatus string

const (
	AuthorizationStatusRequiresPaymentMethod AuthorizationStatus = "requires_payment_method"
	AuthorizationStatusRequiresConfirmation  AuthorizationStatus = "requires_confirmation"
	AuthorizationStatusRequiresAction        AuthorizationStatus = "requires_action"
	AuthorizationStatusProcessing            AuthorizationStatus = "processing"
	AuthorizationStatusCanceled              AuthorizationStatus = "canceled"
	AuthorizationStatusSucceeded             AuthorizationStatus = "succeeded"
)

func (s AuthorizationStatus) String() string {
	return string(s)
}

// Metadata keys written on every authorization.
const (
	MetadataCartID = "cartId"
	MetadataItems  = "items"
)

// Authorization is the processor-side record of a payment attempt.
type Authorization struct {
	ID                 string              `json:"id"`
	Amount             int64               `json:"amount"`
	Currency           string              `json:"currency"`
	Status             AuthorizationStatus `json:"status"`
	ClientSecret       string              `json:"-"`
	Metadata           map[string]string   `json:"metadata"`
	ShippingPostalCode string              `json:"shipping_postal_code,omitempty"`
}

type AuthorizationParams struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// CheckoutItem is what travels to the processor inside the metadata.
type CheckoutItem struct {
	ProductID int64   `json:"productId"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// OrderLineItem is a reconstructed order row joined with the catalog.
type OrderLineItem struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Images   []StoredFile `json:"images,omitempty"`
	Category string       `json:"category"`
	Price    float64      `json:"price"`
	Quantity int          `json:"quantity"`
}
