// Package roles defines the membership role and status enumerations shared by
// every domain. All authorization decisions flow through the capability
// helpers here instead of ad-hoc string comparisons.
package roles

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMembership is returned by role directories when the user has no active
// membership in the tenant.
var ErrNoMembership = errors.New("no active membership")

// Role is a member's privilege level within one tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RolePlayer Role = "player"
)

// Status is the lifecycle state of a membership.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInactive  Status = "inactive"
)

// rank orders roles from least to most privileged. Owner outranks everything;
// owner memberships are immutable through role management.
var rank = map[Role]int{
	RolePlayer: 1,
	RoleStaff:  2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// ParseRole validates a stored or submitted role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rank[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// ParseStatus validates a stored or submitted status string.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusActive, StatusSuspended, StatusInactive:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// AdminArea reports whether the role may enter the admin surface of a tenant
// (member management, invite codes, trophy catalog, awarding).
func (r Role) AdminArea() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleStaff
}

// Assignable reports whether the role may be granted through role management
// or an invite code. Owner is created only alongside its tenant.
func (r Role) Assignable() bool {
	_, ok := rank[r]
	return ok && r != RoleOwner
}

// AtLeast reports whether r carries at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return rank[r] >= rank[other]
}

func (r Role) String() string { return string(r) }

func (s Status) String() string { return string(s) }
