package filterbits

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrInvalidParams is matched by every ParamError via errors.Is.
var ErrInvalidParams = errors.New("invalid parameters")

// ErrOverflow is returned when a bit total does not fit in an int64.
var ErrOverflow = errors.New("filter bit total overflows int64")

// ErrBudgetTooSmall is returned by MaxTopLevelBits when no top-level bit
// budget, not even zero bits, keeps the total within the given budget.
var ErrBudgetTooSmall = errors.New("budget too small for any top-level bits")

// ParamError reports which parameter violated its constraint
type ParamError struct {
	Param   string
	Message string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Message)
}

// Is lets errors.Is(err, ErrInvalidParams) match any ParamError.
func (e *ParamError) Is(target error) bool {
	return target == ErrInvalidParams
}

// ErrInvalidParam creates an error for an invalid parameter
func ErrInvalidParam(param, format string, args ...interface{}) error {
	return &ParamError{Param: param, Message: fmt.Sprintf(format, args...)}
}
