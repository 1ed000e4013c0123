package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types appended by the ledger. The log is append-only: events are never
// mutated or deleted, and their ids form the total order of the audit trail.
const (
	EventItemCreated     = "ITEM_CREATED"
	EventItemDeleted     = "ITEM_DELETED"
	EventStockUpdated    = "STOCK_UPDATED"
	EventStockReserved   = "STOCK_RESERVED"
	EventStockReleased   = "STOCK_RELEASED"
	EventUserCreated     = "USER_CREATED"
	EventUserUpdated     = "USER_UPDATED"
	EventLoanCreated     = "LOAN_CREATED"
	EventLoanReturned    = "LOAN_RETURNED"
	EventReturnCancelled = "RETURN_CANCELLED"
)

// Event is one immutable entry of the audit trail. Data holds the serialized
// payload for the event type; LoanID and PersonID are denormalized references
// for filtered history views, not enforced foreign keys.
type Event struct {
	ID        int64           `db:"id" json:"id"`
	EventType string          `db:"event_type" json:"eventType"`
	Data      json.RawMessage `db:"data" json:"data"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	LoanID    *string         `db:"loan_id" json:"loanId,omitempty"`
	PersonID  *string         `db:"person_id" json:"personId,omitempty"`
}

// EventPayload is the closed union of event data shapes. Each payload carries
// enough information to reconstruct the state change it records.
type EventPayload interface {
	EventType() string
}

// Article type catalog sources for ItemCreatedPayload.
const (
	ItemSourceCustom  = "custom"
	ItemSourceCatalog = "catalog"
)

type ItemCreatedPayload struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

func (ItemCreatedPayload) EventType() string { return EventItemCreated }

type ItemDeletedPayload struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
}

func (ItemDeletedPayload) EventType() string { return EventItemDeleted }

type StockUpdatedPayload struct {
	ItemID        string `json:"itemId"`
	PreviousTotal int    `json:"previousTotal"`
	NewTotal      int    `json:"newTotal"`
}

func (StockUpdatedPayload) EventType() string { return EventStockUpdated }

type StockReservedPayload struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	LoanID   string `json:"loanId"`
	Reason   string `json:"reason,omitempty"`
}

func (StockReservedPayload) EventType() string { return EventStockReserved }

type StockReleasedPayload struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	LoanID   string `json:"loanId"`
}

func (StockReleasedPayload) EventType() string { return EventStockReleased }

type UserCreatedPayload struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Reactivated bool   `json:"reactivated,omitempty"`
}

func (UserCreatedPayload) EventType() string { return EventUserCreated }

// PersonChanges lists the fields touched by a person update. Nil fields were
// not part of the change.
type PersonChanges struct {
	ExternalID *string `json:"externalId,omitempty"`
	Name       *string `json:"name,omitempty"`
	Address    *string `json:"address,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// Empty reports whether no field was changed.
func (c PersonChanges) Empty() bool {
	return c.ExternalID == nil && c.Name == nil && c.Address == nil &&
		c.Phone == nil && c.Email == nil && c.Notes == nil && c.Active == nil
}

type UserUpdatedPayload struct {
	UserID  string        `json:"userId"`
	Changes PersonChanges `json:"changes"`
}

func (UserUpdatedPayload) EventType() string { return EventUserUpdated }

type LoanLineItem struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type LoanCreatedPayload struct {
	LoanID          string         `json:"loanId"`
	PersonID        string         `json:"personId"`
	Items           []LoanLineItem `json:"items"`
	StartDate       string         `json:"startDate"`
	ExpectedEndDate string         `json:"expectedEndDate"`
}

func (LoanCreatedPayload) EventType() string { return EventLoanCreated }

type LoanReturnedPayload struct {
	LoanID    string  `json:"loanId"`
	Condition *string `json:"condition,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

func (LoanReturnedPayload) EventType() string { return EventLoanReturned }

type ReturnCancelledPayload struct {
	LoanID string  `json:"loanId"`
	Reason *string `json:"reason,omitempty"`
}

func (ReturnCancelledPayload) EventType() string { return EventReturnCancelled }

// DecodeEventPayload unmarshals an event's data into its typed payload.
func DecodeEventPayload(eventType string, data []byte) (EventPayload, error) {
	var payload EventPayload
	switch eventType {
	case EventItemCreated:
		payload = &ItemCreatedPayload{}
	case EventItemDeleted:
		payload = &ItemDeletedPayload{}
	case EventStockUpdated:
		payload = &StockUpdatedPayload{}
	case EventStockReserved:
		payload = &StockReservedPayload{}
	case EventStockReleased:
		payload = &StockReleasedPayload{}
	case EventUserCreated:
		payload = &UserCreatedPayload{}
	case EventUserUpdated:
		payload = &UserUpdatedPayload{}
	case EventLoanCreated:
		payload = &LoanCreatedPayload{}
	case EventLoanReturned:
		payload = &LoanReturnedPayload{}
	case EventReturnCancelled:
		payload = &ReturnCancelledPayload{}
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	if err := json.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	return payload, nil
}
