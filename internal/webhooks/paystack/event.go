package paystackwebhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
)

// EventKind is the Paystack event type carried in a delivery. Kinds this
// service acts on are enumerated below; anything else is logged and
// acknowledged without side effects.
type EventKind string

const (
	EventChargeSuccess   EventKind = "charge.success"
	EventChargeFailed    EventKind = "charge.failed"
	EventRefundProcessed EventKind = "refund.processed"
)

var handledEventKinds = []EventKind{
	EventChargeSuccess,
	EventChargeFailed,
	EventRefundProcessed,
}

func (k EventKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is one this service dispatches on.
func (k EventKind) IsValid() bool {
	for _, valid := range handledEventKinds {
		if k == valid {
			return true
		}
	}
	return false
}

// ParseEventKind resolves a wire value into a handled event kind.
func ParseEventKind(value string) (EventKind, error) {
	kind := EventKind(value)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid event kind %q", value)
	}
	return kind, nil
}

// Event is the parsed shape of a Paystack webhook delivery.
type Event struct {
	Kind EventKind `json:"event"`
	Data EventData `json:"data"`
}

// EventData carries the charge or refund the event describes. For refund
// events TransactionReference points at the original charge.
type EventData struct {
	Reference            string         `json:"reference"`
	TransactionReference string         `json:"transaction_reference"`
	Amount               int            `json:"amount"`
	Status               string         `json:"status"`
	GatewayResponse      string         `json:"gateway_response"`
	PaidAt               string         `json:"paid_at"`
	Customer             EventCustomer  `json:"customer"`
	Metadata             map[string]any `json:"metadata"`
}

// EventCustomer identifies the paying customer.
type EventCustomer struct {
	Email string `json:"email"`
}

// ParseEvent decodes a raw webhook body.
func ParseEvent(raw []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	if strings.TrimSpace(event.Kind.String()) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event type missing")
	}
	return &event, nil
}

// ChargeReference is the reference the order was created under: the refund
// payload carries it separately from the refund's own reference.
func (e *Event) ChargeReference() string {
	if e.Kind == EventRefundProcessed && e.Data.TransactionReference != "" {
		return e.Data.TransactionReference
	}
	return e.Data.Reference
}

// MetadataOrderID extracts the order id checkout embedded in the transaction
// metadata, if present.
func (e *Event) MetadataOrderID() uuid.UUID {
	raw, ok := e.Data.Metadata["order_id"]
	if !ok {
		return uuid.Nil
	}
	value, ok := raw.(string)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
}
