// ABOUTME: Static route tree with private and admin guards
// ABOUTME: Resolves a path against the session into render, redirect or wait
package router

import (
	"fmt"
	"net/url"
	"strings"
)

type Access int

const (
	Public Access = iota
	Private
	Admin
)

type Route struct {
	Pattern string
	Title   string
	Access  Access
	// Nav places the route in the sidebar under this section. Empty hides it.
	Nav string
	Key string
}

const (
	SignIn           = "/signin"
	SignUp           = "/signup"
	DashboardPath    = "/dashboard"
	CalendlyCallback = "/integrations/calendly/callback"
)

// LeadPath links to a lead's detail screen.
func LeadPath(id fmt.Stringer) string { return "/leads/" + id.String() }

// Routes is the whole route tree, in sidebar order.
var Routes = []Route{
	{Pattern: SignIn, Title: "Sign in", Access: Public},
	{Pattern: SignUp, Title: "Sign up", Access: Public},
	{Pattern: "/terms", Title: "Terms of Service", Access: Public},
	{Pattern: "/privacy", Title: "Privacy Policy", Access: Public},

	{Pattern: DashboardPath, Title: "Dashboard", Access: Private, Nav: "Workspace", Key: "1"},
	{Pattern: "/leads", Title: "Leads", Access: Private, Nav: "Workspace", Key: "2"},
	{Pattern: "/leads/:id", Title: "Lead", Access: Private},
	{Pattern: "/deals", Title: "Deals", Access: Private, Nav: "Workspace", Key: "3"},
	{Pattern: "/tasks", Title: "Tasks", Access: Private, Nav: "Workspace", Key: "4"},
	{Pattern: "/calendar", Title: "Calendar", Access: Private, Nav: "Workspace", Key: "5"},
	{Pattern: "/email", Title: "Email", Access: Private, Nav: "Workspace", Key: "6"},
	{Pattern: "/cpq/products", Title: "Products", Access: Private, Nav: "CPQ", Key: "7"},
	{Pattern: "/cpq/quotes", Title: "Quotes", Access: Private, Nav: "CPQ", Key: "8"},
	{Pattern: "/notifications", Title: "Notifications", Access: Private},
	{Pattern: "/settings", Title: "Settings", Access: Private, Nav: "Account", Key: "9"},
	{Pattern: CalendlyCallback, Title: "Calendly", Access: Private},

	{Pattern: "/admin/users", Title: "Users", Access: Admin, Nav: "Admin"},
	{Pattern: "/admin/stages", Title: "Stages", Access: Admin, Nav: "Admin"},
	{Pattern: "/admin/organization", Title: "Organization", Access: Admin, Nav: "Admin"},
}

// Session is what the guards need to know about the current user.
type Session interface {
	IsAuthenticated() bool
	IsAdmin() bool
	Pending() bool
}

// Location is a parsed path with its route parameters and query.
type Location struct {
	Path   string
	Params map[string]string
	Query  url.Values
}

// String rebuilds the path with its query.
func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

func Parse(raw string) Location {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{Path: "/", Query: url.Values{}}
	}
	p := "/" + strings.Trim(u.Path, "/")
	return Location{Path: p, Query: u.Query(), Params: map[string]string{}}
}

type Kind int

const (
	Render Kind = iota
	Redirect
	// Wait means a user fetch is in flight and the guard cannot decide yet.
	Wait
)

type Decision struct {
	Kind     Kind
	Route    Route
	Location Location
	// Target is set for redirects.
	Target string
}

// Match finds the route for a path and fills in its parameters.
func Match(p string) (Route, map[string]string, bool) {
	segs := split(p)
	for _, r := range Routes {
		params, ok := matchPattern(split(r.Pattern), segs)
		if ok {
			return r, params, true
		}
	}
	return Route{}, nil, false
}

// Resolve applies the guards to raw for the given session.
func Resolve(raw string, s Session) Decision {
	loc := Parse(raw)
	route, params, ok := Match(loc.Path)
	if !ok {
		if s.IsAuthenticated() {
			return redirect(DashboardPath)
		}
		return redirect(SignIn)
	}
	loc.Params = params

	switch route.Access {
	case Public:
		if s.IsAuthenticated() && (route.Pattern == SignIn || route.Pattern == SignUp) {
			return redirect(PostLoginTarget(loc))
		}
	case Private, Admin:
		if s.Pending() {
			return Decision{Kind: Wait, Route: route, Location: loc}
		}
		if !s.IsAuthenticated() {
			return redirect(SignIn + "?" + url.Values{"from": {loc.String()}}.Encode())
		}
		if route.Access == Admin && !s.IsAdmin() {
			return redirect(DashboardPath)
		}
	}
	return Decision{Kind: Render, Route: route, Location: loc}
}

// PostLoginTarget picks where the sign-in screen sends the user next: the
// preserved "from" path when it is an internal private route, else the dashboard.
func PostLoginTarget(signin Location) string {
	from := signin.Query.Get("from")
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") {
		return DashboardPath
	}
	route, _, ok := Match(Parse(from).Path)
	if !ok || route.Access == Public {
		return DashboardPath
	}
	return from
}

// Nav returns sidebar routes visible to the session, grouped in order.
func Nav(isAdmin bool) []Route {
	var out []Route
	for _, r := range Routes {
		if r.Nav == "" || (r.Access == Admin && !isAdmin) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func redirect(target string) Decision {
	return Decision{Kind: Redirect, Target: target}
}

func split(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchPattern(pattern, segs []string) (map[string]string, bool) {
	if len(pattern) != len(segs) {
		return nil, false
	}
	params := map[string]string{}
	for i, part := range pattern {
		if strings.HasPrefix(part, ":") {
			params[part[1:]] = segs[i]
			continue
		}
		if part != segs[i] {
			return nil, false
		}
	}
	return params, true
}
