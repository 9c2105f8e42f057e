// Package gateway defines the contracts the fulfillment engine needs from
// its external money and logistics collaborators. The concrete SDK calls
// live behind these interfaces; the engine only sees normalized inputs and
// outputs.
package gateway

import "fulfillment/internal/models"

// InitiateResult is the opaque handle returned by the payment gateway when
// a payment is initiated. The transaction id may be empty if the gateway
// assigns it asynchronously.
type InitiateResult struct {
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url,omitempty"`
}

// PaymentGateway is the outbound contract towards the payment provider.
// Calls may block on the network and are never made while holding a lock
// on engine state.
type PaymentGateway interface {
	Initiate(amount float64, method models.PaymentMethod, orderRef string) (*InitiateResult, error)
	Refund(transactionID string, amount float64) error
}

// Parcel describes the physical package handed to the carrier.
type Parcel struct {
	Pieces      int `json:"pieces"`
	WeightGrams int `json:"weight_grams,omitempty"`
}

// ShipmentBooking is what the carrier returns for a freshly booked shipment.
type ShipmentBooking struct {
	TrackingNumber string `json:"tracking_number"`
	LabelURL       string `json:"label_url"`
}

// ShippingCarrier is the outbound contract towards the logistics provider.
type ShippingCarrier interface {
	CreateShipment(from, to models.Address, parcel Parcel, carrierCode string) (*ShipmentBooking, error)
}
