package geo

import (
	"errors"
	"fmt"
)

// ErrDomain is matched by every DomainError.
var ErrDomain = errors.New("geo: input outside the domain of the conversion")

// DomainError reports a physically meaningless input to a conversion, such
// as the Earth's centre handed to a geodetic conversion.
type DomainError struct {
	Op     string
	Input  Vec3
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("geo: %s(%g, %g, %g): %s", e.Op, e.Input[0], e.Input[1], e.Input[2], e.Reason)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

func shapeError(r, c int) error {
	return fmt.Errorf("geo: expected an N×3 matrix, got %d×%d", r, c)
}
