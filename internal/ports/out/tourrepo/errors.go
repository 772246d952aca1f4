package tourrepo

import "errors"

var (
	ErrNotFound      = errors.New("tour not found")
	ErrAlreadyExists = errors.New("tour already exists")
)
