// Package access resolves canteen roles and answers which actions and data a
// role may reach.
package access

import (
	"strings"

	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
)

// Role is a canteen user role
type Role string

const (
	Admin   Role = "admin"
	Vendor  Role = "vendor"
	Staff   Role = "staff"
	Student Role = "student"
	Faculty Role = "faculty"
	Guest   Role = "guest"
)

// Lowest is assigned when no profile or no recognizable role exists
const Lowest = Guest

// All lists every role in descending privilege order
var All = []Role{Admin, Vendor, Staff, Student, Faculty, Guest}

// SignupRoles are the roles a user may pick when registering
var SignupRoles = []Role{Student, Faculty, Staff, Guest, Vendor}

// Parse normalizes a stored role string. The retired "superadmin" role
// collapses into admin and "visitor" into guest. Anything else unknown
// becomes the lowest role.
func Parse(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case Admin, Vendor, Staff, Student, Faculty, Guest:
		return r
	case "superadmin":
		return Admin
	case "visitor":
		return Guest
	default:
		return Lowest
	}
}

// IsValid reports whether s names a known role without normalization
func IsValid(s string) bool {
	for _, r := range All {
		if string(r) == s {
			return true
		}
	}
	return false
}

// Resolve returns the stored role of a profile, defaulting to the lowest role
// when the profile is missing
func Resolve(profile *models.UserProfile) Role {
	if profile == nil {
		return Lowest
	}
	return Parse(profile.Role)
}

// CapabilityRole maps a displayed role to the capability set applied for data
// access and view selection. Admin and vendor are swapped on purpose.
func CapabilityRole(displayed Role) Role {
	switch displayed {
	case Admin:
		return Vendor
	case Vendor:
		return Admin
	default:
		return displayed
	}
}

// Identity carries both faces of a user's role
type Identity struct {
	UserID     uint `json:"user_id"`
	Displayed  Role `json:"displayed_role"`
	Capability Role `json:"capability_role"`
}

// NewIdentity builds an Identity from a stored role string
func NewIdentity(userID uint, stored string) Identity {
	displayed := Parse(stored)
	return Identity{UserID: userID, Displayed: displayed, Capability: CapabilityRole(displayed)}
}
