package models

import "time"

// Webhook provider names recorded in the idempotency ledger.
const (
	ProviderPaymentGateway  = "payment_gateway"
	ProviderShippingCarrier = "shipping_carrier"
)

// ProcessedWebhookEvent is one row of the idempotency ledger: a provider
// plus the provider-assigned event id. The ledger is append-only and is
// used solely for duplicate detection of redelivered webhooks.
type ProcessedWebhookEvent struct {
	Provider    string    `json:"provider" gorm:"primaryKey;type:varchar(40)"`
	EventID     string    `json:"event_id" gorm:"primaryKey;type:varchar(64)"`
	ProcessedAt time.Time `json:"processed_at"`
}

// GatewayEvent is the normalized payload of a payment-gateway webhook.
type GatewayEvent struct {
	Provider              string `json:"provider"`
	EventID               string `json:"event_id" validate:"required"`
	ExternalTransactionID string `json:"external_transaction_id"`
	OrderCorrelationID    string `json:"order_correlation_id"` // the order number the gateway echoes back
	ResultStatus          string `json:"result_status" validate:"required"`
	RawPayload            string `json:"raw_payload,omitempty"`
}

// CarrierEvent is the normalized payload of a shipping-carrier webhook.
type CarrierEvent struct {
	Provider       string `json:"provider"`
	EventID        string `json:"event_id" validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"required"`
	CarrierStatus  string `json:"carrier_status" validate:"required"`
	StatusDetail   string `json:"status_detail,omitempty"`
}
