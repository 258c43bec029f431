package connection

import "errors"

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
)

type Role string

const (
	// RoleRenderer is a page that plays cams and reports media events.
	RoleRenderer Role = "renderer"
	// RoleObserver only receives snapshots and may send commands.
	RoleObserver Role = "observer"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleRenderer, RoleObserver:
		return Role(s), true
	}

	return "", false
}

type Client struct {
	ID   string
	Role Role
}
