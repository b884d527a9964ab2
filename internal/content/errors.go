package content

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Validation error codes (E200-E299)
const (
	ErrUnknownItem       = "E201" // rate, cost or grid references a missing item
	ErrUnknownGenerator  = "E202" // effect or condition references a missing generator
	ErrUnknownUpgrade    = "E203" // effect or condition references a missing upgrade
	ErrUnknownRule       = "E204" // event condition references a missing rule
	ErrDuplicateRule     = "E205" // narrative keys must be unique
	ErrUnknownTopic      = "E206" // ui.topics references a missing topic
	ErrUnknownScientist  = "E207" // ui.scientists or unlockScientist references a missing scientist
	ErrMissingTarget     = "E208" // addOutput/addInput/reduceInput without target
	ErrConditionOperand  = "E209" // operator does not fit the operand type
	ErrNegativeRate      = "E210" // rates and costs must be non-negative
	ErrEmptyCatalog      = "E211" // no items declared
	ErrFractionalCount   = "E212" // generator effects move whole units
)

// ValidationError is a referential error in an otherwise well-formed catalog.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// LoadError is a CUE parse or schema error with source position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
