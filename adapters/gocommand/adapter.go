package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

// MessageContractError marks a message that failed ValidateMessageContract,
// as opposed to a failure of the handler itself.
type MessageContractError struct {
	Type string
	Err  error
}

func (e *MessageContractError) Error() string {
	if e == nil || e.Err == nil {
		return "gocommand: invalid message"
	}
	return e.Err.Error()
}

func (e *MessageContractError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RunQuery validates msg and runs it through qry.
func RunQuery[T any, R any](ctx context.Context, qry command.Querier[T, R], msg T) (R, error) {
	var zero R
	if qry == nil {
		return zero, fmt.Errorf("gocommand: query is required")
	}
	if err := ValidateMessageContract(msg); err != nil {
		msgType := ""
		if typed, ok := any(msg).(command.Message); ok {
			msgType = typed.Type()
		}
		return zero, &MessageContractError{Type: msgType, Err: err}
	}
	return qry.Query(ctx, msg)
}
