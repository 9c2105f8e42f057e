package models

import (
	"strings"
	"time"
)

// ShipmentStatus is the closed status set carrier statuses are mapped into.
type ShipmentStatus string

const (
	ShipmentCreated   ShipmentStatus = "CREATED"
	ShipmentInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentDelivered ShipmentStatus = "DELIVERED"
	ShipmentException ShipmentStatus = "EXCEPTION"
)

// shipmentRank orders the monotonic statuses. EXCEPTION sits outside the
// ranking: it is reachable from anywhere and is a sink requiring manual
// intervention.
var shipmentRank = map[ShipmentStatus]int{
	ShipmentCreated:   0,
	ShipmentInTransit: 1,
	ShipmentDelivered: 2,
}

// carrierStatusMap is the fixed lookup from carrier-specific status strings
// to the closed set. Unmapped strings become EXCEPTION and are logged for
// manual review, never silently dropped.
var carrierStatusMap = map[string]ShipmentStatus{
	"created":          ShipmentCreated,
	"label_generated":  ShipmentCreated,
	"picked_up":        ShipmentInTransit,
	"in_transit":       ShipmentInTransit,
	"out_for_delivery": ShipmentInTransit,
	"delivered":        ShipmentDelivered,
	"exception":        ShipmentException,
	"return_to_sender": ShipmentException,
	"lost":             ShipmentException,
}

// MapCarrierStatus maps a raw carrier status string into the closed set.
// The second return value is false when the string is unknown; the caller
// treats that as EXCEPTION.
func MapCarrierStatus(carrierStatus string) (ShipmentStatus, bool) {
	mapped, ok := carrierStatusMap[strings.ToLower(strings.TrimSpace(carrierStatus))]
	if !ok {
		return ShipmentException, false
	}
	return mapped, true
}

// Shipment represents one parcel dispatched for an order. An order may
// have several shipments.
type Shipment struct {
	ID             string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID        string         `json:"order_id" gorm:"index;type:varchar(36)"`
	CarrierCode    string         `json:"carrier_code" gorm:"type:varchar(40)"`
	TrackingNumber string         `json:"tracking_number,omitempty" gorm:"index;type:varchar(64)"` // empty until the carrier assigns one
	Status         ShipmentStatus `json:"status" gorm:"type:varchar(20);index"`
	LabelURL       string         `json:"label_url,omitempty" gorm:"type:varchar(512)"`
	Version        int            `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CanTransitionTo reports whether moving the shipment to the given status
// is allowed. Forward skips are permitted (CREATED -> DELIVERED stands for
// "intermediate events were missed"); regressions are not. EXCEPTION is
// reachable from any non-EXCEPTION status and accepts nothing afterwards.
func (s *Shipment) CanTransitionTo(to ShipmentStatus) bool {
	if s.Status == ShipmentException {
		return false
	}
	if to == ShipmentException {
		return true
	}
	return shipmentRank[to] > shipmentRank[s.Status]
}
