package models

import "fmt"

// Role is the closed set of permission levels a user can hold.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Satisfies reports whether a holder of r may act where required is needed.
// Unknown roles satisfy nothing.
func (r Role) Satisfies(required Role) bool {
	switch r {
	case RoleAdmin:
		return required == RoleAdmin || required == RoleUser
	case RoleUser:
		return required == RoleUser
	default:
		return false
	}
}

// Scan rejects role values the application does not know about.
func (r *Role) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", value)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
