package gateway

import (
	"fmt"
	"strings"

	"fulfillment/internal/models"

	"github.com/google/uuid"
)

// SandboxGateway is a local stand-in for a real payment provider. Every
// initiation succeeds and gets a transaction id immediately; refunds are
// acknowledged unconditionally. Useful for local runs and tests.
type SandboxGateway struct{}

// NewSandboxGateway creates a new SandboxGateway.
func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{}
}

// Initiate returns a synthetic transaction handle.
func (g *SandboxGateway) Initiate(amount float64, method models.PaymentMethod, orderRef string) (*InitiateResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("sandbox gateway: amount must be positive, got %.2f", amount)
	}
	txnID := "txn-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	return &InitiateResult{
		TransactionID: txnID,
		RedirectURL:   fmt.Sprintf("https://sandbox.gateway.local/pay/%s", txnID),
	}, nil
}

// Refund acknowledges every refund.
func (g *SandboxGateway) Refund(transactionID string, amount float64) error {
	if transactionID == "" {
		return fmt.Errorf("sandbox gateway: refund requires a transaction id")
	}
	if amount <= 0 {
		return fmt.Errorf("sandbox gateway: refund amount must be positive, got %.2f", amount)
	}
	return nil
}

// SandboxCarrier is a local stand-in for a real logistics provider.
type SandboxCarrier struct{}

// NewSandboxCarrier creates a new SandboxCarrier.
func NewSandboxCarrier() *SandboxCarrier {
	return &SandboxCarrier{}
}

// CreateShipment books a synthetic shipment with a tracking number and label.
func (c *SandboxCarrier) CreateShipment(from, to models.Address, parcel Parcel, carrierCode string) (*ShipmentBooking, error) {
	if carrierCode == "" {
		return nil, fmt.Errorf("sandbox carrier: carrier code is required")
	}
	if to.Line1 == "" || to.City == "" {
		return nil, fmt.Errorf("sandbox carrier: destination address is incomplete")
	}
	tracking := strings.ToUpper(carrierCode) + "-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return &ShipmentBooking{
		TrackingNumber: tracking,
		LabelURL:       fmt.Sprintf("https://sandbox.carrier.local/labels/%s.pdf", tracking),
	}, nil
}
