package captcha

// AuthorizationChecker decides whether the caller holds any of roles.
type AuthorizationChecker interface {
	IsGranted(req Request, roles []string) bool
}

// AuthorizationCheckerFunc adapts a function to AuthorizationChecker.
type AuthorizationCheckerFunc func(req Request, roles []string) bool

func (f AuthorizationCheckerFunc) IsGranted(req Request, roles []string) bool {
	return f(req, roles)
}

// RoleChecker grants access when the request carries at least one of the
// asked roles.
type RoleChecker struct{}

func (RoleChecker) IsGranted(req Request, roles []string) bool {
	granted := req.Roles()
	if len(granted) == 0 || len(roles) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(granted))
	for _, r := range granted {
		set[r] = struct{}{}
	}
	for _, r := range roles {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
