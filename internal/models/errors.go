package models

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrStructure marks every failure caused by markup that does not have the expected shape.
var ErrStructure = errors.New("structural parse failure")

// ErrReconciliation marks a failed call to the real-price endpoint.
var ErrReconciliation = errors.New("price reconciliation failed")

// ParseError names the piece of markup that was missing or malformed.
type ParseError struct {
	Piece   string // "product id", "total pages", ...
	Input   string
	Pattern string
}

func (e *ParseError) Error() string {
	switch {
	case e.Pattern != "":
		return fmt.Sprintf("%v: cannot parse %s from %q, pattern %q", ErrStructure, e.Piece, e.Input, e.Pattern)
	case e.Input != "":
		return fmt.Sprintf("%v: cannot parse %s from %q", ErrStructure, e.Piece, e.Input)
	default:
		return fmt.Sprintf("%v: %s not found", ErrStructure, e.Piece)
	}
}

func (e *ParseError) Unwrap() error { return ErrStructure }

// ReconcileError wraps the cause of a failed real-price batch. It matches both
// ErrReconciliation and the cause under errors.Is.
type ReconcileError struct {
	Start, End int
	Err        error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("%v: batch %d-%d: %v", ErrReconciliation, e.Start, e.End, e.Err)
}

func (e *ReconcileError) Is(target error) bool { return target == ErrReconciliation }

func (e *ReconcileError) Unwrap() error { return e.Err }
