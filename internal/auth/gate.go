// Package auth derives access decisions from the persisted credential state.
// Decisions are recomputed from the store on every check so a credential
// change made anywhere else (another command, another process) is honored
// immediately; nothing is cached.
package auth

import "fmt"

type Role string

const (
	// RolePublic marks a region with no access requirement.
	RolePublic Role = ""
	// RoleAny marks a region requiring any authenticated principal.
	RoleAny     Role = "*"
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Target is where a denied principal should be sent.
type Target int

const (
	TargetNone Target = iota
	TargetStudentLogin
	TargetAdminLogin
	TargetHome
)

func (t Target) String() string {
	switch t {
	case TargetStudentLogin:
		return "student login"
	case TargetAdminLogin:
		return "admin login"
	case TargetHome:
		return "home"
	default:
		return "none"
	}
}

// Decision is the outcome of an access check.
type Decision struct {
	Allowed  bool
	Redirect Target
}

// CredentialSource is the slice of the persistent store the gate reads.
// A role without a token is meaningless and never consulted.
type CredentialSource interface {
	Token() string
	Role() string
}

// Gate maps (credential state, required role) to an access decision.
type Gate struct {
	creds CredentialSource
}

func NewGate(creds CredentialSource) *Gate {
	return &Gate{creds: creds}
}

// Check evaluates access to a region requiring the given role.
//
// An anonymous principal is sent to the login surface matching the required
// role. An authenticated principal with the wrong role is sent home rather
// than to a login page, since logging in again would not help.
func (g *Gate) Check(required Role) Decision {
	if required == RolePublic {
		return Decision{Allowed: true}
	}

	if g.creds.Token() == "" {
		target := TargetStudentLogin
		if required == RoleAdmin {
			target = TargetAdminLogin
		}
		return Decision{Redirect: target}
	}

	if required != RoleAny && g.creds.Role() != string(required) {
		return Decision{Redirect: TargetHome}
	}

	return Decision{Allowed: true}
}

// CredentialWriter is the credential mutation surface of the store.
type CredentialWriter interface {
	SetCredentials(token, role string) error
	ClearCredentials() error
}

// Login persists the credential pair as one unit.
func Login(store CredentialWriter, token string, role Role) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}
	return store.SetCredentials(token, string(role))
}

// Logout removes the credential pair. Session history is deliberately kept
// so prior conversations survive the next login on the same machine. The
// caller must reset any controller holding derived state afterwards.
func Logout(store CredentialWriter) error {
	return store.ClearCredentials()
}
