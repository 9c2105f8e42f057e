package models

import "time"

// OrderStatus is the lifecycle status of an Order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Valid reports whether the status is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are accepted from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// orderTransitions is the single source of truth for Order moves. Both the
// user-driven path (cancel, admin update) and the webhook-driven path
// (payment success, shipment progress) consult the same table.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

// Address is a point-in-time snapshot captured on the order, never a live
// reference to a user's address book.
type Address struct {
	Line1      string `json:"line1" gorm:"type:varchar(255)" validate:"required"`
	City       string `json:"city" gorm:"type:varchar(100)" validate:"required"`
	PostalCode string `json:"postal_code" gorm:"type:varchar(20)" validate:"required"`
	Country    string `json:"country" gorm:"type:varchar(2)" validate:"required,len=2"`
}

// OrderItem represents a single item within an order. Price is the unit
// price at the time the order was placed and is never recomputed.
type OrderItem struct {
	ID        string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string  `json:"order_id" gorm:"index;type:varchar(36)"`
	ProductID string  `json:"product_id" gorm:"type:varchar(36)" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
	Price     float64 `json:"price" validate:"required,gt=0"` // Price at the time of order
}

// Order represents a customer order.
type Order struct {
	ID              string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber     string      `json:"order_number" gorm:"uniqueIndex;type:varchar(32)"`
	CustomerID      string      `json:"customer_id" gorm:"index;type:varchar(36)"`
	SellerID        string      `json:"seller_id,omitempty" gorm:"type:varchar(36)"` // empty for multi-seller orders
	Items           []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	TotalAmount     float64     `json:"total_amount"`
	Status          OrderStatus `json:"status" gorm:"type:varchar(20);index"`
	ShippingAddress Address     `json:"shipping_address" gorm:"embedded;embeddedPrefix:shipping_"`
	BillingAddress  Address     `json:"billing_address" gorm:"embedded;embeddedPrefix:billing_"`
	Version         int         `json:"version"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// CanTransitionTo reports whether moving the order to the given status is
// allowed from its current status.
func (o *Order) CanTransitionTo(to OrderStatus) bool {
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ItemByID returns the order item with the given id, or nil.
func (o *Order) ItemByID(itemID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}
