package captcha

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/telar/apps/recaptcha/internal/types"
)

// Request is the view of the current HTTP request the rule needs.
type Request interface {
	// ClientIP is the caller's address as resolved by the server's proxy settings.
	ClientIP() string
	// Host is the requested host name without port.
	Host() string
	// FormValue returns a submitted form field, or "" when absent.
	FormValue(name string) string
	// Roles lists the roles granted to the authenticated caller.
	Roles() []string
}

type fiberRequest struct {
	c *fiber.Ctx
}

// FromFiber adapts a Fiber context. The result must not outlive the handler.
func FromFiber(c *fiber.Ctx) Request {
	return fiberRequest{c: c}
}

func (r fiberRequest) ClientIP() string {
	return r.c.IP()
}

func (r fiberRequest) Host() string {
	return stripPort(r.c.Hostname())
}

func (r fiberRequest) FormValue(name string) string {
	return r.c.FormValue(name)
}

func (r fiberRequest) Roles() []string {
	if u, ok := r.c.Locals(types.UserCtxName).(types.UserContext); ok {
		return u.GrantedRoles()
	}
	return nil
}

// StaticRequest is a Request backed by plain values, for callers outside an
// HTTP handler.
type StaticRequest struct {
	IP           string
	HostName     string
	Form         map[string]string
	GrantedRoles []string
}

func (r StaticRequest) ClientIP() string { return r.IP }

func (r StaticRequest) Host() string { return stripPort(r.HostName) }

func (r StaticRequest) FormValue(name string) string { return r.Form[name] }

func (r StaticRequest) Roles() []string { return r.GrantedRoles }

func stripPort(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]")
}
