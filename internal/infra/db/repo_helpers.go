package db

import (
	"errors"

	"github.com/google/uuid"
)

var errDBUnavailable = errors.New("db unavailable")

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
