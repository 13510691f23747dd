package sim

import "errors"

var (
	ErrPositionExists   = errors.New("sim: position already open")
	ErrNoPosition       = errors.New("sim: no open position")
	ErrInsufficientCash = errors.New("sim: insufficient cash")
	ErrInvalidQuantity  = errors.New("sim: invalid quantity")
	ErrInvalidPrice     = errors.New("sim: invalid price")
)
