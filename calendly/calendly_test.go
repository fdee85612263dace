// ABOUTME: Tests for the Calendly authorization flow
// ABOUTME: Exercises the authorize URL, callback parsing and the local listener
package calendly

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadlab/models"
)

type fakeExchanger struct {
	code, redirect string
	err            error
}

func (f *fakeExchanger) Exchange(_ context.Context, code, redirectURI string) (*models.CalendlyStatus, error) {
	f.code, f.redirect = code, redirectURI
	if f.err != nil {
		return nil, f.err
	}
	return &models.CalendlyStatus{Connected: true, Email: "ada@example.com"}, nil
}

const redirect = "http://localhost:8765/integrations/calendly/callback"

func TestNewFlowRequiresClientID(t *testing.T) {
	_, err := NewFlow("  ", redirect, &fakeExchanger{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAuthURL(t *testing.T) {
	f, err := NewFlow("client-123", redirect, &fakeExchanger{}, nil)
	require.NoError(t, err)

	u, err := url.Parse(f.AuthURL())
	require.NoError(t, err)
	assert.Equal(t, "auth.calendly.com", u.Host)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, redirect, q.Get("redirect_uri"))
	assert.Equal(t, "default", q.Get("scope"))
	assert.Equal(t, f.state, q.Get("state"))
}

func TestParseCallbackURL(t *testing.T) {
	cb, err := ParseCallbackURL(redirect + "?code=abc&state=xyz")
	require.NoError(t, err)
	assert.Equal(t, "abc", cb.Code)
	assert.Equal(t, "xyz", cb.State)
	assert.NoError(t, cb.Err())

	cb, err = ParseCallbackURL("bare-code")
	require.NoError(t, err)
	assert.Equal(t, "bare-code", cb.Code)

	cb, err = ParseCallbackURL("error=access_denied&error_description=User+declined")
	require.NoError(t, err)
	var denied *DeniedError
	require.ErrorAs(t, cb.Err(), &denied)
	assert.Equal(t, "User declined", denied.Description)

	_, err = ParseCallbackURL("")
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestComplete(t *testing.T) {
	ex := &fakeExchanger{}
	f, err := NewFlow("client-123", redirect, ex, nil)
	require.NoError(t, err)

	st, err := f.Complete(context.Background(), Callback{Code: "abc", State: f.state})
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Equal(t, "abc", ex.code)
	assert.Equal(t, redirect, ex.redirect)

	_, err = f.Complete(context.Background(), Callback{Code: "abc", State: "forged"})
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, err = f.Complete(context.Background(), Callback{})
	assert.ErrorIs(t, err, ErrNoCode)

	ex.err = errors.New("backend down")
	_, err = f.Complete(context.Background(), Callback{Code: "abc"})
	assert.ErrorContains(t, err, "backend down")
}

func startServe(t *testing.T, f *Flow) (string, chan result) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan result, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st, err := f.serve(ctx, ln, "/cb")
		done <- result{status: st, err: err}
	}()
	return "http://" + ln.Addr().String() + "/cb", done
}

func TestServeSuccess(t *testing.T) {
	f, err := NewFlow("client-123", redirect, &fakeExchanger{}, nil)
	require.NoError(t, err)
	base, done := startServe(t, f)

	resp, err := http.Get(base + "?code=abc&state=" + f.state)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Connected as ada@example.com.")

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.status.Connected)
}

func TestServeProviderError(t *testing.T) {
	f, err := NewFlow("client-123", redirect, &fakeExchanger{}, nil)
	require.NoError(t, err)
	base, done := startServe(t, f)

	resp, err := http.Get(base + "?error=access_denied&error_description=Nope")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Nope")

	res := <-done
	var denied *DeniedError
	assert.ErrorAs(t, res.err, &denied)
}
