package ranking

import "errors"

var (
	ErrAlreadySettled = errors.New("tournament already settled")
	ErrNotSettled     = errors.New("tournament not settled")
)
