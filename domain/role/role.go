package role

import "fmt"

// Role is the fixed set of roles carried in token claims and user records.
type Role string

const (
	Staff           Role = "staff"
	Therapist       Role = "therapist"
	CDC             Role = "cdc"
	RegionalManager Role = "regional_manager"
	Admin           Role = "admin"
)

// priorities defines the single canonical ordering used everywhere.
// Staff and Therapist share the lowest tier; Admin always outranks the rest.
var priorities = map[Role]int{
	Staff:           2,
	Therapist:       2,
	CDC:             3,
	RegionalManager: 4,
	Admin:           5,
}

// Parse returns the Role for a raw claim value, or an error for unknown roles.
func Parse(s string) (Role, error) {
	r := Role(s)
	if _, ok := priorities[r]; !ok {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

func (r Role) String() string {
	return string(r)
}

// Priority returns the role's rank in the hierarchy. Unknown roles rank below
// every real role so they never pass a Require check.
func (r Role) Priority() int {
	return priorities[r]
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := priorities[r]
	return ok
}

// Allows reports whether a holder of r satisfies a check requiring minimum.
// Equal priority passes, so Staff and Therapist are interchangeable.
func (r Role) Allows(minimum Role) bool {
	return r.Priority() >= minimum.Priority()
}

// IsElevated reports whether the role outranks the base tier. Elevated roles
// may act on other identities; base roles only on their own.
func (r Role) IsElevated() bool {
	return r.Priority() > Staff.Priority()
}

// CanAct is the self-service fallback predicate: an actor may act on a target
// when the actor holds an elevated role or is the target.
func CanAct(actorRole Role, actorID, targetID string) bool {
	return actorRole.IsElevated() || actorID == targetID
}
