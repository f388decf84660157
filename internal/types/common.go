package types

import "github.com/gofrs/uuid"

// HTTP Header Constants
const (
	HeaderUID            = "uid"
	HeaderAuthorization  = "Authorization"
	HeaderContentType    = "Content-Type"
	HeaderAcceptLanguage = "Accept-Language"
)

// Authentication Constants
const (
	BearerPrefix = "Bearer "
)

// Common Values
const (
	UserRole  = "user"
	AdminRole = "admin"
)

// UserCtxName is the Fiber locals key holding the authenticated UserContext.
const UserCtxName = "user"

// UserContext is the caller identity extracted from a verified access token.
type UserContext struct {
	UserID      uuid.UUID
	Username    string
	DisplayName string
	SystemRole  string
	Roles       []string
}

// GrantedRoles returns the system role followed by any additional roles,
// without duplicates or empty entries.
func (u UserContext) GrantedRoles() []string {
	seen := make(map[string]struct{}, len(u.Roles)+1)
	roles := make([]string, 0, len(u.Roles)+1)
	for _, r := range append([]string{u.SystemRole}, u.Roles...) {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	return roles
}
