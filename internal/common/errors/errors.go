// Package errors defines the ledger fault taxonomy. Every fault aborts
// the current call synchronously; read paths never fault, they return
// empty results instead.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// FaultCode represents standardized fault codes.
type FaultCode string

const (
	CodePlanNotFound        FaultCode = "PLAN_NOT_FOUND"
	CodeAlreadySubscribed   FaultCode = "ALREADY_SUBSCRIBED"
	CodeNotSubscribed       FaultCode = "NOT_SUBSCRIBED"
	CodeInsufficientPayment FaultCode = "INSUFFICIENT_PAYMENT"
	CodeInvalidAction       FaultCode = "INVALID_ACTION"
	CodeMissingArgument     FaultCode = "MISSING_ARGUMENT"
	CodeInvalidArgument     FaultCode = "INVALID_ARGUMENT"
	CodeStorageFailure      FaultCode = "STORAGE_FAILURE"
)

// Fault is a structured ledger fault.
type Fault struct {
	Code      FaultCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (f *Fault) Error() string {
	return fmt.Sprintf("Fault[%s]: %s", f.Code, f.Message)
}

// Is treats two faults with the same code as equal, so call sites can use
// errors.Is against a constructor result.
func (f *Fault) Is(target error) bool {
	var other *Fault
	if errors.As(target, &other) {
		return f.Code == other.Code
	}
	return false
}

func newFault(code FaultCode, message, details string) *Fault {
	return &Fault{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanNotFound creates a fault for a missing plan record.
func NewPlanNotFound(planID string) *Fault {
	return newFault(CodePlanNotFound, "Plan not found", fmt.Sprintf("planId: %s", planID))
}

// NewAlreadySubscribed creates a fault for a duplicate subscribe.
func NewAlreadySubscribed(planID, subscriber string) *Fault {
	return newFault(CodeAlreadySubscribed, "Already subscribed to plan",
		fmt.Sprintf("planId: %s, subscriber: %s", planID, subscriber))
}

// NewNotSubscribed creates a fault for pause/cancel without membership.
func NewNotSubscribed(planID, subscriber string) *Fault {
	return newFault(CodeNotSubscribed, "Not subscribed to plan",
		fmt.Sprintf("planId: %s, subscriber: %s", planID, subscriber))
}

// NewInsufficientPayment creates a fault for an underfunded subscribe.
func NewInsufficientPayment(required, attached uint64) *Fault {
	return newFault(CodeInsufficientPayment, "Attached payment below plan amount",
		fmt.Sprintf("required: %d, attached: %d", required, attached))
}

// NewInvalidAction creates a fault for an unrecognized action string.
func NewInvalidAction(action string) *Fault {
	return newFault(CodeInvalidAction, "Unrecognized subscription action",
		fmt.Sprintf("action: %s", action))
}

// NewMissingArgument creates a fault for a truncated argument buffer.
func NewMissingArgument(name string) *Fault {
	return newFault(CodeMissingArgument, "Missing required argument", name)
}

// NewInvalidArgument creates a fault for an argument that fails parsing.
func NewInvalidArgument(name, details string) *Fault {
	return newFault(CodeInvalidArgument, fmt.Sprintf("Invalid argument '%s'", name), details)
}

// NewStorageFailure wraps an unexpected storage error.
func NewStorageFailure(err error) *Fault {
	return newFault(CodeStorageFailure, "Storage operation failed", err.Error())
}

// CodeOf extracts the fault code, or empty for non-fault errors.
func CodeOf(err error) FaultCode {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}

// HTTPStatus maps a fault code to an HTTP response status.
func HTTPStatus(code FaultCode) int {
	switch code {
	case CodePlanNotFound:
		return http.StatusNotFound
	case CodeAlreadySubscribed, CodeNotSubscribed:
		return http.StatusConflict
	case CodeInsufficientPayment:
		return http.StatusPaymentRequired
	case CodeInvalidAction, CodeMissingArgument, CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
