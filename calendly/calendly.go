// ABOUTME: Calendly authorization-code flow: authorize URL, callback parsing and code exchange
// ABOUTME: Can run a one-shot local HTTP listener that receives the redirect
package calendly

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/harperreed/leadlab/models"
)

const (
	AuthorizeURL = "https://auth.calendly.com/oauth/authorize"
	TokenURL     = "https://auth.calendly.com/oauth/token"
	Scope        = "default"
)

var (
	ErrNotConfigured = errors.New("calendly integration is not configured")
	ErrNoCode        = errors.New("no authorization code received")
	ErrStateMismatch = errors.New("authorization state does not match")
)

//go:embed templates/*
var templatesFS embed.FS

var cardTemplate = template.Must(template.ParseFS(templatesFS, "templates/callback.html"))

// DeniedError is the provider's error/error_description pair.
type DeniedError struct {
	Code        string
	Description string
}

func (e *DeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("calendly authorization failed: %s", e.Description)
	}
	return fmt.Sprintf("calendly authorization failed: %s", e.Code)
}

// Exchanger hands a code to the backend. CalendlyService satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, code, redirectURI string) (*models.CalendlyStatus, error)
}

type Callback struct {
	Code        string
	State       string
	Error       string
	Description string
}

// ParseCallback reads the redirect query parameters.
func ParseCallback(q url.Values) Callback {
	return Callback{
		Code:        strings.TrimSpace(q.Get("code")),
		State:       q.Get("state"),
		Error:       q.Get("error"),
		Description: q.Get("error_description"),
	}
}

// ParseCallbackURL accepts a full redirect URL or a bare query string.
func ParseCallbackURL(raw string) (Callback, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Callback{}, ErrNoCode
	}
	if !strings.Contains(raw, "?") && !strings.Contains(raw, "=") {
		return Callback{Code: raw}, nil
	}
	query := raw
	if i := strings.Index(raw, "?"); i >= 0 {
		query = raw[i+1:]
	}
	q, err := url.ParseQuery(query)
	if err != nil {
		return Callback{}, fmt.Errorf("invalid callback URL: %w", err)
	}
	return ParseCallback(q), nil
}

// Err is the provider error carried by the callback, if any.
func (c Callback) Err() error {
	if c.Error != "" || c.Description != "" {
		return &DeniedError{Code: c.Error, Description: c.Description}
	}
	if c.Code == "" {
		return ErrNoCode
	}
	return nil
}

type Flow struct {
	config    oauth2.Config
	state     string
	exchanger Exchanger
	logger    *log.Logger
}

// NewFlow returns ErrNotConfigured when clientID is empty.
func NewFlow(clientID, redirectURI string, ex Exchanger, logger *log.Logger) (*Flow, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Flow{
		config: oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURI,
			Scopes:      []string{Scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  AuthorizeURL,
				TokenURL: TokenURL,
			},
		},
		state:     uuid.NewString(),
		exchanger: ex,
		logger:    logger,
	}, nil
}

func (f *Flow) RedirectURI() string { return f.config.RedirectURL }

// AuthURL carries client_id, response_type=code, redirect_uri, scope and state.
func (f *Flow) AuthURL() string {
	return f.config.AuthCodeURL(f.state)
}

// Complete checks the callback and exchanges its code through the backend.
// A callback without state is accepted so pasted codes still work.
func (f *Flow) Complete(ctx context.Context, cb Callback) (*models.CalendlyStatus, error) {
	if err := cb.Err(); err != nil {
		return nil, err
	}
	if cb.State != "" && cb.State != f.state {
		return nil, ErrStateMismatch
	}
	f.logger.Debug("exchanging calendly code", "redirect_uri", f.config.RedirectURL)
	st, err := f.exchanger.Exchange(ctx, cb.Code, f.config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect calendly: %w", err)
	}
	return st, nil
}

type result struct {
	status *models.CalendlyStatus
	err    error
}

// Listen serves the redirect URI on its host and port until one callback
// arrives or ctx ends.
func (f *Flow) Listen(ctx context.Context) (*models.CalendlyStatus, error) {
	u, err := url.Parse(f.config.RedirectURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid redirect URI %q", f.config.RedirectURL)
	}
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for callback: %w", err)
	}
	return f.serve(ctx, ln, callbackPath(u))
}

func (f *Flow) serve(ctx context.Context, ln net.Listener, path string) (*models.CalendlyStatus, error) {
	results := make(chan result, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		st, err := f.Complete(r.Context(), ParseCallback(r.URL.Query()))
		renderCard(w, st, err)
		select {
		case results <- result{status: st, err: err}:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			select {
			case results <- result{err: err}:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		return res.status, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func callbackPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

type card struct {
	Title   string
	Message string
	Failed  bool
}

func renderCard(w http.ResponseWriter, st *models.CalendlyStatus, err error) {
	c := card{Title: "Calendly connected", Message: "Your Calendly account is now linked."}
	status := http.StatusOK
	if err != nil {
		c = card{Title: "Calendly connection failed", Message: err.Error(), Failed: true}
		status = http.StatusBadRequest
	} else if st != nil && st.Email != "" {
		c.Message = fmt.Sprintf("Connected as %s.", st.Email)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = cardTemplate.Execute(w, c)
}
