package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrTerminal      = errors.New("order status is final")
	ErrInvalidStatus = errors.New("invalid order status")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusVerified, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// CheckTransition allows only pending -> verified and pending -> rejected.
func CheckTransition(from, to Status) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, from)
	}
	if !to.Terminal() {
		return fmt.Errorf("%w: cannot move %s to %s", ErrInvalidStatus, from, to)
	}
	return nil
}
