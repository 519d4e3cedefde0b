package models

import (
	"encoding/json"
	"time"
)

// Business event types consumed by the worker.
const (
	EventAccountCreated     = "account.created"
	EventOrderPlaced        = "order.placed"
	EventShipmentCreated    = "shipment.created"
	EventInvoiceCreated     = "invoice.created"
	EventOrderStatusChanged = "order.status_changed"
	EventAddressSaved       = "address.saved"
)

// Event is the envelope published by the surrounding application. Payload
// holds the record matching Type: Customer, Order, Shipment, Invoice,
// StatusHistory or AddressSaved.
type Event struct {
	EventID   string            `json:"event_id"`
	Type      string            `json:"type"`
	Scope     string            `json:"scope,omitempty"`
	TraceID   string            `json:"trace_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Payload   json.RawMessage   `json:"payload"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// AddressSaved is the payload of an address.saved event.
type AddressSaved struct {
	Customer Customer `json:"customer"`
	Address  Address  `json:"address"`
}
