package sso

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/platinummonkey/gatehouse/pkg/identity"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/registry"
	"github.com/platinummonkey/gatehouse/pkg/session"
)

func discardLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

// fakeAuth records login/logout call order around a real session
// authenticator so ordering contracts can be asserted.
type fakeAuth struct {
	inner      *session.Authenticator
	calls      []string
	failLogout bool
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{inner: session.NewAuthenticator(discardLogger())}
}

func (f *fakeAuth) Login(st *session.State, p *identity.Principal) error {
	f.calls = append(f.calls, "login:"+p.ID)
	return f.inner.Login(st, p)
}

func (f *fakeAuth) Logout(st *session.State) error {
	id := ""
	if current := session.CurrentPrincipal(st.Session); current != nil {
		id = current.ID
	}
	f.calls = append(f.calls, "logout:"+id)
	if f.failLogout {
		return errors.New("logout refused")
	}
	return f.inner.Logout(st)
}

func newLocal(t *testing.T) (*Local, *registry.Memory, *fakeAuth) {
	t.Helper()
	keys := registry.NewMemory()
	auth := newFakeAuth()
	l := NewLocal(keys, auth, NewStateTenantSwitcher(discardLogger()), discardLogger())
	return l, keys, auth
}

func newState(id string) *session.State {
	return &session.State{Session: session.NewMemorySession(id), Tenant: "default"}
}

func requestWithState(st *session.State, params url.Values, ajax bool) *http.Request {
	target := "/"
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if ajax {
		r.Header.Set(requestedWithHeader, ajaxRequestedWith)
	}
	return r.WithContext(session.NewContext(r.Context(), st))
}

func TestExternalLoginKey_IssuesAndCachesPerRequest(t *testing.T) {
	l, keys, _ := newLocal(t)

	st := newState("s1")
	st.Principal = &identity.Principal{ID: "alice", Tenant: "default"}
	r := requestWithState(st, nil, false)

	key := l.ExternalLoginKey(r)
	if key == "" {
		t.Fatal("expected a login key for an authenticated request")
	}

	// Repeated lookups within the same request return the identical key.
	if again := l.ExternalLoginKey(r); again != key {
		t.Errorf("second lookup = %q, want %q", again, key)
	}

	p, ok, err := keys.Get(r.Context(), key)
	if err != nil || !ok {
		t.Fatalf("issued key not in registry: %v, %v", ok, err)
	}
	if p.ID != "alice" {
		t.Errorf("registry principal = %+v, want alice", p)
	}
	if st.Session.Value("externalLoginKey") != key {
		t.Error("key should be bound to the session")
	}
}

func TestExternalLoginKey_RotatesAcrossRequests(t *testing.T) {
	l, keys, _ := newLocal(t)

	st1 := newState("s1")
	st1.Principal = &identity.Principal{ID: "alice"}
	key1 := l.ExternalLoginKey(requestWithState(st1, nil, false))
	if key1 == "" {
		t.Fatal("expected first key")
	}

	// A new request on the same session rotates the key.
	st2 := &session.State{Session: st1.Session, Tenant: "default", Principal: st1.Principal}
	key2 := l.ExternalLoginKey(requestWithState(st2, nil, false))
	if key2 == "" || key2 == key1 {
		t.Fatalf("expected a fresh key, got %q after %q", key2, key1)
	}

	if _, ok, _ := keys.Get(context.Background(), key1); ok {
		t.Error("rotated key must be removed from the registry")
	}
	if _, ok, _ := keys.Get(context.Background(), key2); !ok {
		t.Error("fresh key must be in the registry")
	}
}

func TestExternalLoginKey_AjaxReusesKey(t *testing.T) {
	l, keys, _ := newLocal(t)

	st1 := newState("s1")
	st1.Principal = &identity.Principal{ID: "alice"}
	key1 := l.ExternalLoginKey(requestWithState(st1, nil, false))

	// Background sub-requests of the same page load keep the page's key.
	st2 := &session.State{Session: st1.Session, Tenant: "default", Principal: st1.Principal}
	key2 := l.ExternalLoginKey(requestWithState(st2, nil, true))
	if key2 != key1 {
		t.Errorf("AJAX request got %q, want reused %q", key2, key1)
	}
	if _, ok, _ := keys.Get(context.Background(), key1); !ok {
		t.Error("reused key must survive in the registry")
	}
}

func TestExternalLoginKey_UnauthenticatedClearsPreviousKey(t *testing.T) {
	l, keys, _ := newLocal(t)

	st1 := newState("s1")
	st1.Principal = &identity.Principal{ID: "alice"}
	key1 := l.ExternalLoginKey(requestWithState(st1, nil, false))

	// The follow-up request carries no principal: no new key, and the
	// stale one must not stay redeemable.
	st2 := &session.State{Session: st1.Session, Tenant: "default"}
	if key := l.ExternalLoginKey(requestWithState(st2, nil, false)); key != "" {
		t.Errorf("unauthenticated request got key %q, want none", key)
	}
	if _, ok, _ := keys.Get(context.Background(), key1); ok {
		t.Error("previous key must be removed even without a new principal")
	}
}

func TestExternalLoginKey_NoSessionState(t *testing.T) {
	l, _, _ := newLocal(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if key := l.ExternalLoginKey(r); key != "" {
		t.Errorf("request without session state got key %q", key)
	}
}

func TestCheckLoginKey_AlwaysProceeds(t *testing.T) {
	l, _, _ := newLocal(t)

	st := newState("s1")
	r := requestWithState(st, url.Values{LoginKeyParam: {"ELnope"}}, false)
	if got := l.CheckLoginKey(httptest.NewRecorder(), r); got != Proceed {
		t.Errorf("CheckLoginKey() = %v, want Proceed", got)
	}
}

func TestCheckLoginKey_NoParam(t *testing.T) {
	l, _, _ := newLocal(t)

	res := l.checkLoginKey(requestWithState(newState("s1"), nil, false))
	if res.Outcome != OutcomeNone {
		t.Errorf("outcome = %v, want none", res.Outcome)
	}
}

func TestCheckLoginKey_UnknownKey(t *testing.T) {
	l, _, auth := newLocal(t)

	st := newState("s1")
	res := l.checkLoginKey(requestWithState(st, url.Values{LoginKeyParam: {"ELnope"}}, false))
	if res.Outcome != OutcomeUnknownKey || res.Failure != FailureUnknownKey {
		t.Errorf("result = %+v, want unknown key", res)
	}
	if len(auth.calls) != 0 {
		t.Errorf("unknown key must not touch authentication state: %v", auth.calls)
	}
}

func TestCheckLoginKey_EstablishesPrincipal(t *testing.T) {
	l, keys, auth := newLocal(t)
	keys.Put(context.Background(), "ELkey", identity.Principal{ID: "alice", Tenant: "default"})

	st := newState("s1")
	res := l.checkLoginKey(requestWithState(st, url.Values{LoginKeyParam: {"ELkey"}}, false))
	if res.Outcome != OutcomeLogin {
		t.Fatalf("result = %+v, want login", res)
	}
	if got := session.CurrentPrincipal(st.Session); got == nil || got.ID != "alice" {
		t.Errorf("session principal = %v, want alice", got)
	}
	if st.Principal == nil || st.Principal.ID != "alice" {
		t.Errorf("request principal = %v, want alice", st.Principal)
	}
	if len(auth.calls) != 1 || auth.calls[0] != "login:alice" {
		t.Errorf("calls = %v, want [login:alice]", auth.calls)
	}

	// The key stays redeemable for the other webapps of this server.
	if _, ok, _ := keys.Get(context.Background(), "ELkey"); !ok {
		t.Error("consuming a key must not remove it")
	}
}

func TestCheckLoginKey_SamePrincipalAlreadyActive(t *testing.T) {
	l, keys, auth := newLocal(t)
	keys.Put(context.Background(), "ELkey", identity.Principal{ID: "alice"})

	st := newState("s1")
	if err := auth.Login(st, &identity.Principal{ID: "alice"}); err != nil {
		t.Fatal(err)
	}
	auth.calls = nil

	res := l.checkLoginKey(requestWithState(st, url.Values{LoginKeyParam: {"ELkey"}}, false))
	if res.Outcome != OutcomeAlreadyActive {
		t.Errorf("result = %+v, want already active", res)
	}
	if len(auth.calls) != 0 {
		t.Errorf("no login/logout expected for the active principal: %v", auth.calls)
	}
}

func TestCheckLoginKey_SwitchesPrincipalInOrder(t *testing.T) {
	l, keys, auth := newLocal(t)
	keys.Put(context.Background(), "ELkey", identity.Principal{ID: "bob"})

	st := newState("s1")
	if err := auth.Login(st, &identity.Principal{ID: "alice"}); err != nil {
		t.Fatal(err)
	}
	auth.calls = nil

	res := l.checkLoginKey(requestWithState(st, url.Values{LoginKeyParam: {"ELkey"}}, false))
	if res.Outcome != OutcomeSwitched {
		t.Fatalf("result = %+v, want switched", res)
	}
	want := []string{"logout:alice", "login:bob"}
	if len(auth.calls) != 2 || auth.calls[0] != want[0] || auth.calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", auth.calls, want)
	}
	if got := session.CurrentPrincipal(st.Session); got == nil || got.ID != "bob" {
		t.Errorf("session principal = %v, want bob", got)
	}
}

func TestCheckLoginKey_LogoutFailureTolerated(t *testing.T) {
	l, keys, auth := newLocal(t)
	keys.Put(context.Background(), "ELkey", identity.Principal{ID: "bob"})

	st := newState("s1")
	if err := auth.Login(st, &identity.Principal{ID: "alice"}); err != nil {
		t.Fatal(err)
	}
	auth.failLogout = true
	auth.calls = nil

	// The old principal refuses to log out; the new one is established
	// anyway.
	res := l.checkLoginKey(requestWithState(st, url.Values{LoginKeyParam: {"ELkey"}}, false))
	if res.Outcome != OutcomeSwitched {
		t.Fatalf("result = %+v, want switched despite logout failure", res)
	}
	if got := session.CurrentPrincipal(st.Session); got == nil || got.ID != "bob" {
		t.Errorf("session principal = %v, want bob", got)
	}
}

func TestCheckLoginKey_SwitchesTenant(t *testing.T) {
	l, keys, _ := newLocal(t)
	keys.Put(context.Background(), "ELkey", identity.Principal{ID: "carol", Tenant: "acme"})

	st := newState("s1")
	res := l.checkLoginKey(requestWithState(st, url.Values{LoginKeyParam: {"ELkey"}}, false))
	if res.Outcome != OutcomeLogin {
		t.Fatalf("result = %+v, want login", res)
	}
	if st.Tenant != "acme" {
		t.Errorf("working tenant = %q, want acme", st.Tenant)
	}
}

// failingStore simulates a registry whose backend is unreachable
type failingStore struct {
	*registry.Memory
}

func (f failingStore) Get(ctx context.Context, key string) (identity.Principal, bool, error) {
	return identity.Principal{}, false, errors.New("backend unavailable")
}

func TestCheckLoginKey_RegistryError(t *testing.T) {
	auth := newFakeAuth()
	l := NewLocal(failingStore{registry.NewMemory()}, auth, nil, discardLogger())

	st := newState("s1")
	res := l.checkLoginKey(requestWithState(st, url.Values{LoginKeyParam: {"ELkey"}}, false))
	if res.Outcome != OutcomeFailed || res.Failure != FailureRegistry || res.Err == nil {
		t.Errorf("result = %+v, want registry failure", res)
	}
	if got := l.CheckLoginKey(httptest.NewRecorder(), requestWithState(st, url.Values{LoginKeyParam: {"ELkey"}}, false)); got != Proceed {
		t.Errorf("CheckLoginKey() = %v, want Proceed even on backend failure", got)
	}
}

func TestConsume(t *testing.T) {
	l, keys, _ := newLocal(t)
	keys.Put(context.Background(), "ELkey", identity.Principal{ID: "alice"})

	p, ok := l.Consume(context.Background(), "ELkey")
	if !ok || p.ID != "alice" {
		t.Errorf("Consume() = %+v, %v; want alice", p, ok)
	}
	if _, ok := l.Consume(context.Background(), "ELnope"); ok {
		t.Error("Consume() of unknown key should report absent")
	}
}

func TestCleanup(t *testing.T) {
	l, keys, _ := newLocal(t)

	st := newState("s1")
	st.Principal = &identity.Principal{ID: "alice"}
	key := l.ExternalLoginKey(requestWithState(st, nil, false))
	if key == "" {
		t.Fatal("expected a key")
	}

	l.Cleanup(st.Session)
	if _, ok, _ := keys.Get(context.Background(), key); ok {
		t.Error("Cleanup() must remove the session's key")
	}
	if st.Session.Value("externalLoginKey") != nil {
		t.Error("Cleanup() must unbind the key from the session")
	}

	// Idempotent, and safe without a session.
	l.Cleanup(st.Session)
	l.Cleanup(nil)
}
