// Package scene models the editable canvas: one background layer plus an
// ordered list of overlay objects, each tagged with at most one semantic role.
//
// The background is conceptually canvas index 0 and is painted first. Overlay
// objects occupy canvas indices 1..n; throughout this package an "index"
// means the overlay index (canvas index minus one).
package scene

import "fmt"

// Role classifies an overlay object. Roles are mutually exclusive and decide
// which tool module may claim and update the object.
type Role string

const (
	RoleNone  Role = ""
	RoleText  Role = "text"
	RoleLogo  Role = "logo"
	RoleQR    Role = "qr"
	RoleFrame Role = "frame"
	RoleShape Role = "shape"
)

// Roles lists every assignable role in a stable order.
var Roles = []Role{RoleText, RoleLogo, RoleQR, RoleFrame, RoleShape}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// Valid reports whether r is RoleNone or one of the closed set of roles.
func (r Role) Valid() bool {
	if r == RoleNone {
		return true
	}
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Editable reports whether objects carrying r accept user edits.
// Only untagged (background-like) objects are locked.
func (r Role) Editable() bool {
	return r != RoleNone
}

// ParseRole converts s into a Role. "none" and "" both map to RoleNone.
func ParseRole(s string) (Role, error) {
	if s == "none" {
		return RoleNone, nil
	}
	r := Role(s)
	if !r.Valid() {
		return RoleNone, fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// TagRole attaches role to o, replacing any previous role, and marks the
// object editable unless the role is non-editable.
func TagRole(o *Object, role Role) {
	o.Role = role
	o.Editable = role.Editable()
}

// FindByRole returns the first overlay object carrying role, or nil.
func FindByRole(s *Scene, role Role) *Object {
	for _, o := range s.objects {
		if o.Role == role {
			return o
		}
	}
	return nil
}

// FindAllByRole returns every overlay object carrying role in paint order.
func FindAllByRole(s *Scene, role Role) []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.Role == role {
			out = append(out, o)
		}
	}
	return out
}

// TargetForRole picks the object a tool module should update in place: the
// active object when it carries role, otherwise the first match.
func TargetForRole(s *Scene, role Role) *Object {
	if a := s.active; a != nil && a.Role == role {
		return a
	}
	return FindByRole(s, role)
}
