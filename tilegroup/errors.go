package tilegroup

import (
	"fmt"

	"github.com/colstore/tilegroup/storeerr"
)

func errInvariant(msg string) error {
	return fmt.Errorf("%w: %s", storeerr.ErrInvariantViolation, msg)
}
