// ABOUTME: Tests for route guards, post-login redirects and history
// ABOUTME: Checks every private and admin route against each session kind
package router

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadlab/storage"
)

type session struct {
	authed, admin, pending bool
}

func (s session) IsAuthenticated() bool { return s.authed }
func (s session) IsAdmin() bool         { return s.authed && s.admin }
func (s session) Pending() bool         { return s.pending }

var (
	anonymous = session{}
	member    = session{authed: true}
	admin     = session{authed: true, admin: true}
)

func concrete(pattern string) string {
	return strings.ReplaceAll(pattern, ":id", "3f1c7d2e-0000-4000-8000-000000000001")
}

func TestAnonymousVisitsRedirectToSignInWithFrom(t *testing.T) {
	for _, r := range Routes {
		if r.Access == Public {
			continue
		}
		requested := concrete(r.Pattern) + "?tab=open"
		d := Resolve(requested, anonymous)
		require.Equal(t, Redirect, d.Kind, r.Pattern)

		target := Parse(d.Target)
		assert.Equal(t, SignIn, target.Path, r.Pattern)
		assert.Equal(t, requested, target.Query.Get("from"), r.Pattern)

		// Signing in afterwards lands on the original request.
		assert.Equal(t, requested, PostLoginTarget(target), r.Pattern)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	var adminRoutes int
	for _, r := range Routes {
		if r.Access != Admin {
			continue
		}
		adminRoutes++
		d := Resolve(r.Pattern, member)
		assert.Equal(t, Redirect, d.Kind, r.Pattern)
		assert.Equal(t, DashboardPath, d.Target, r.Pattern)

		d = Resolve(r.Pattern, admin)
		assert.Equal(t, Render, d.Kind, r.Pattern)
		assert.Equal(t, r.Pattern, d.Route.Pattern)
	}
	assert.Positive(t, adminRoutes)
}

func TestPrivateRoutesRenderForMembers(t *testing.T) {
	for _, r := range Routes {
		if r.Access != Private {
			continue
		}
		d := Resolve(concrete(r.Pattern), member)
		assert.Equal(t, Render, d.Kind, r.Pattern)
	}
}

func TestGuardWaitsForInFlightUserFetch(t *testing.T) {
	d := Resolve("/deals", session{pending: true})
	assert.Equal(t, Wait, d.Kind)

	d = Resolve("/signin", session{pending: true})
	assert.Equal(t, Render, d.Kind, "public routes never wait")
}

func TestRouteParams(t *testing.T) {
	d := Resolve("/leads/abc", member)
	require.Equal(t, Render, d.Kind)
	assert.Equal(t, "abc", d.Location.Params["id"])
	assert.Equal(t, "/leads/:id", d.Route.Pattern)
}

func TestSignInWhileAuthenticatedRedirects(t *testing.T) {
	d := Resolve("/signin?from="+url.QueryEscape("/tasks"), member)
	assert.Equal(t, Redirect, d.Kind)
	assert.Equal(t, "/tasks", d.Target)
}

func TestUnknownPaths(t *testing.T) {
	assert.Equal(t, SignIn, Resolve("/nope", anonymous).Target)
	assert.Equal(t, DashboardPath, Resolve("/", member).Target)
}

func TestPostLoginTargetRejectsOutsidePaths(t *testing.T) {
	for _, from := range []string{"", "https://evil.example", "//evil.example/x", "/signup", "/unknown"} {
		loc := Location{Query: url.Values{"from": {from}}}
		assert.Equal(t, DashboardPath, PostLoginTarget(loc), from)
	}
}

func TestNavHidesAdminSection(t *testing.T) {
	for _, r := range Nav(false) {
		assert.NotEqual(t, Admin, r.Access)
	}
	var sawAdmin bool
	for _, r := range Nav(true) {
		if r.Access == Admin {
			sawAdmin = true
		}
	}
	assert.True(t, sawAdmin)
}

func TestHistory(t *testing.T) {
	h := NewHistory("/dashboard")
	h.Push("/deals")
	h.Push("/deals")
	h.Push("/leads/1")
	h.Replace("/leads/2")

	p, ok := h.Back()
	assert.True(t, ok)
	assert.Equal(t, "/deals", p)
	p, _ = h.Back()
	assert.Equal(t, "/dashboard", p)
	_, ok = h.Back()
	assert.False(t, ok)
}

func TestRestorePathIsOneShot(t *testing.T) {
	kv, err := storage.OpenInMemory()
	require.NoError(t, err)
	defer kv.Close()

	_, ok, err := TakeRestorePath(kv)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SaveRestorePath(kv, "/calendar"))
	p, ok, err := TakeRestorePath(kv)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/calendar", p)

	_, ok, _ = TakeRestorePath(kv)
	assert.False(t, ok)
}
