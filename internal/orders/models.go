package orders

import "time"

type Product struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Variant is a purchasable configuration of a product. Its stock is the
// number of inventory units not yet sold.
type Variant struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
}

type Order struct {
	ID        string      `json:"id"`
	Reference string      `json:"reference"`
	UserID    string      `json:"user_id"`
	Status    Status      `json:"status"` // lihat status.go
	Total     int64       `json:"total"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OrderItem keeps the unit price at the time the order was placed.
type OrderItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Transaction is one payment attempt reported for an order.
type Transaction struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"order_id"`
	Provider      string        `json:"provider"`
	ProviderTxnID string        `json:"provider_txn_id,omitempty"`
	Amount        int64         `json:"amount"`
	Status        PaymentStatus `json:"status"`
	Reason        string        `json:"reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
