package enums

import (
	"fmt"
	"slices"
)

// OrderStatus tracks fulfilment of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "OP"
	OrderStatusProcessing OrderStatus = "PR"
	OrderStatusShipped    OrderStatus = "SH"
	OrderStatusDelivered  OrderStatus = "DL"
	OrderStatusCancelled  OrderStatus = "CN"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// IsValid reports whether the value is a known order status.
func (s OrderStatus) IsValid() bool { return slices.Contains(orderStatuses, s) }

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse(orderStatuses, value, "order status")
}

// PaidStatus tracks how much of an order has been paid.
type PaidStatus string

const (
	PaidStatusUnpaid     PaidStatus = "NP"
	PaidStatusPartlyPaid PaidStatus = "PP"
	PaidStatusPaid       PaidStatus = "PD"
)

// IsValid reports whether the value is a known paid status.
func (s PaidStatus) IsValid() bool {
	switch s {
	case PaidStatusUnpaid, PaidStatusPartlyPaid, PaidStatusPaid:
		return true
	default:
		return false
	}
}

// FulfilmentChoice picks who delivers or who collects payment for an order.
type FulfilmentChoice string

const (
	FulfilmentStore  FulfilmentChoice = "store"
	FulfilmentSeller FulfilmentChoice = "seller"
)

// IsValid reports whether the value is a known fulfilment choice.
func (f FulfilmentChoice) IsValid() bool {
	return f == FulfilmentStore || f == FulfilmentSeller
}

// ParseFulfilmentChoice converts raw input into FulfilmentChoice.
func ParseFulfilmentChoice(value string) (FulfilmentChoice, error) {
	switch FulfilmentChoice(value) {
	case FulfilmentStore, FulfilmentSeller:
		return FulfilmentChoice(value), nil
	default:
		return "", fmt.Errorf("invalid fulfilment choice %q", value)
	}
}
