package services

import (
	"fmt"
	"time"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/auth"
	"fulfillment/internal/gateway"
	"fulfillment/internal/models"
	"fulfillment/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ShipmentService owns the Shipment lifecycle and drives the order's
// SHIPPED/DELIVERED aggregation from carrier webhooks.
type ShipmentService struct {
	shipmentRepo repositories.ShipmentRepository
	orderRepo    repositories.OrderRepository
	ledger       repositories.WebhookLedger
	carrier      gateway.ShippingCarrier
	origin       models.Address // warehouse address parcels ship from
	publisher    EventPublisher
}

// NewShipmentService creates a new ShipmentService.
func NewShipmentService(
	shipmentRepo repositories.ShipmentRepository,
	orderRepo repositories.OrderRepository,
	ledger repositories.WebhookLedger,
	carrier gateway.ShippingCarrier,
	origin models.Address,
	publisher EventPublisher,
) *ShipmentService {
	return &ShipmentService{
		shipmentRepo: shipmentRepo,
		orderRepo:    orderRepo,
		ledger:       ledger,
		carrier:      carrier,
		origin:       origin,
		publisher:    publisher,
	}
}

// CreateShipment books a shipment with the carrier for a PROCESSING order.
// Admins may ship any order; sellers only their own. The carrier call
// happens before the shipment row is written.
func (s *ShipmentService) CreateShipment(orderID, carrierCode string, actor models.Actor) (*models.Shipment, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if !auth.IsAdmin(actor) && !auth.IsOrderSeller(actor, order) {
		return nil, fmt.Errorf("actor %s may not ship order %s: %w", actor.ID, orderID, apperrors.ErrUnauthorized)
	}
	if order.Status != models.OrderProcessing {
		return nil, fmt.Errorf("order %s is %s, shipping requires PROCESSING: %w",
			orderID, order.Status, apperrors.ErrInvalidStatusTransition)
	}

	pieces := 0
	for _, item := range order.Items {
		pieces += item.Quantity
	}
	booking, err := s.carrier.CreateShipment(s.origin, order.ShippingAddress, gateway.Parcel{Pieces: pieces}, carrierCode)
	if err != nil {
		return nil, fmt.Errorf("carrier booking for order %s failed: %w", orderID, err)
	}

	shipment := &models.Shipment{
		ID:             uuid.New().String(),
		OrderID:        order.ID,
		CarrierCode:    carrierCode,
		TrackingNumber: booking.TrackingNumber,
		Status:         models.ShipmentCreated,
		LabelURL:       booking.LabelURL,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := s.shipmentRepo.Create(shipment); err != nil {
		return nil, err
	}
	log.Info().Str("order_id", orderID).Str("shipment_id", shipment.ID).
		Str("tracking_number", shipment.TrackingNumber).Msg("shipment created")
	publishEvent(s.publisher, "shipment.created", map[string]interface{}{
		"shipment_id":     shipment.ID,
		"order_id":        shipment.OrderID,
		"tracking_number": shipment.TrackingNumber,
	})
	return shipment, nil
}

// ApplyCarrierEvent is the sole entry point for carrier webhooks. Status
// strings are mapped into the closed set; unmapped strings become
// EXCEPTION and are logged for manual review. Out-of-order deliveries
// degrade gracefully: forward skips are applied, regressions are
// acknowledged as no-ops because a shipment's progress never regresses.
func (s *ShipmentService) ApplyCarrierEvent(event models.CarrierEvent) (*models.Shipment, error) {
	provider := event.Provider
	if provider == "" {
		provider = models.ProviderShippingCarrier
	}
	seen, err := s.ledger.Seen(provider, event.EventID)
	if err != nil {
		return nil, err
	}
	if seen {
		log.Info().Str("event_id", event.EventID).Msg("duplicate carrier event ignored")
		return nil, fmt.Errorf("carrier event %s: %w", event.EventID, apperrors.ErrDuplicateEvent)
	}

	shipment, err := s.shipmentRepo.GetByTrackingNumber(event.TrackingNumber)
	if err != nil {
		return nil, err
	}

	mapped, known := models.MapCarrierStatus(event.CarrierStatus)
	if !known {
		log.Warn().Str("tracking_number", event.TrackingNumber).Str("carrier_status", event.CarrierStatus).
			Str("detail", event.StatusDetail).Msg("unmapped carrier status, treating as exception")
	}

	if shipment.CanTransitionTo(mapped) {
		shipment, err = transitionShipment(s.shipmentRepo, shipment.ID, mapped)
		if err != nil {
			return nil, err
		}
		if _, err := syncOrderWithShipments(s.orderRepo, s.shipmentRepo, shipment.OrderID); err != nil {
			return nil, err
		}
		publishEvent(s.publisher, "shipment.status_changed", map[string]interface{}{
			"shipment_id": shipment.ID,
			"order_id":    shipment.OrderID,
			"status":      shipment.Status,
		})
	} else {
		// Stale or repeated status. Acknowledge without touching state.
		log.Info().Str("shipment_id", shipment.ID).Str("current", string(shipment.Status)).
			Str("incoming", string(mapped)).Msg("carrier event does not advance shipment, ignoring")
	}

	if err := s.ledger.Record(provider, event.EventID); err != nil {
		return shipment, err
	}
	log.Info().Str("shipment_id", shipment.ID).Str("event_id", event.EventID).
		Str("status", string(shipment.Status)).Msg("carrier event applied")
	return shipment, nil
}
