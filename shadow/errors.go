package shadow

import "errors"

var (
	// ErrInvalidSlot is returned for a shadow texture slot outside the
	// configured list.
	ErrInvalidSlot = errors.New("shadow: texture slot out of range")
	// ErrTextureCreate wraps device failures while building the texture pool.
	ErrTextureCreate = errors.New("shadow: cannot create shadow texture")
	// ErrInvalidTechnique is returned for unknown or malformed techniques.
	ErrInvalidTechnique = errors.New("shadow: invalid technique")
)
