package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/interviewprep/internal/identity"
	"github.com/hitoshi/interviewprep/internal/model"
	"github.com/hitoshi/interviewprep/internal/session"
)

// --- モック定義 ---

type mockChecker struct {
	authenticatedUserFn func(ctx context.Context, store session.CookieStore) (*model.User, error)
}

func (m *mockChecker) AuthenticatedUser(ctx context.Context, store session.CookieStore) (*model.User, error) {
	return m.authenticatedUserFn(ctx, store)
}

type mockClearer struct {
	calls int
}

func (m *mockClearer) ClearSession(_ context.Context, store session.CookieStore) bool {
	m.calls++
	return store.Delete(session.CookieName) == nil
}

// failingProvider は呼ばれたらテストを失敗させるidentity.Provider。
type failingProvider struct{ t *testing.T }

func (p failingProvider) CreateSessionCookie(context.Context, string, time.Duration) (string, error) {
	p.t.Error("CreateSessionCookie must not be called")
	return "", errors.New("unexpected")
}

func (p failingProvider) VerifySessionCookie(context.Context, string, bool) (*identity.Claims, error) {
	p.t.Error("VerifySessionCookie must not be called")
	return nil, errors.New("unexpected")
}

func (p failingProvider) GetUserByEmail(context.Context, string) (*identity.UserRecord, error) {
	p.t.Error("GetUserByEmail must not be called")
	return nil, errors.New("unexpected")
}

func (p failingProvider) GetUser(context.Context, string) (*identity.UserRecord, error) {
	p.t.Error("GetUser must not be called")
	return nil, errors.New("unexpected")
}

// failingDirectory は呼ばれたらテストを失敗させるプロフィールストア。
type failingDirectory struct{ t *testing.T }

func (d failingDirectory) FindByID(context.Context, string) (*model.User, error) {
	d.t.Error("FindByID must not be called")
	return nil, errors.New("unexpected")
}

func (d failingDirectory) EnsureUserDocument(context.Context, string, string, string) (*model.User, error) {
	d.t.Error("EnsureUserDocument must not be called")
	return nil, errors.New("unexpected")
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func checkerReturning(user *model.User, err error) *mockChecker {
	return &mockChecker{authenticatedUserFn: func(context.Context, session.CookieStore) (*model.User, error) {
		return user, err
	}}
}

func panickingChecker() *mockChecker {
	return &mockChecker{authenticatedUserFn: func(context.Context, session.CookieStore) (*model.User, error) {
		panic("boom")
	}}
}

var guardUser = &model.User{ID: "user-1", Email: "a@example.com", Name: "a"}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}

// --- 保護領域ガード ---

func TestProtectedAreaGuard_NoCookie_RedirectsWithoutStoreCalls(t *testing.T) {
	manager := session.NewManager(failingProvider{t}, failingDirectory{t}, nil, session.CookieOptions{})
	guard := NewProtectedAreaGuard(manager, manager.Store, "/sign-in")

	called := false
	w := httptest.NewRecorder()
	guard(okHandler(&called)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if called {
		t.Error("protected page must not render without a session")
	}
	assertRedirect(t, w, "/sign-in")
}

func TestProtectedAreaGuard_Authenticated_RendersWithUserInContext(t *testing.T) {
	calls := 0
	checker := &mockChecker{authenticatedUserFn: func(context.Context, session.CookieStore) (*model.User, error) {
		calls++
		return guardUser, nil
	}}
	guard := NewProtectedAreaGuard(checker, testStores, "/sign-in")

	var got *model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	w := httptest.NewRecorder()
	guard(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got != guardUser {
		t.Errorf("user in context = %+v, want %+v", got, guardUser)
	}
	if calls != 1 {
		t.Errorf("AuthenticatedUser calls = %d, want 1", calls)
	}
}

func TestProtectedAreaGuard_FailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		checker *mockChecker
	}{
		{name: "not authenticated", checker: checkerReturning(nil, nil)},
		{name: "checker error", checker: checkerReturning(nil, context.Canceled)},
		{name: "checker panic", checker: panickingChecker()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := NewProtectedAreaGuard(tt.checker, testStores, "/sign-in")

			called := false
			w := httptest.NewRecorder()
			guard(okHandler(&called)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if called {
				t.Error("protected page must not render")
			}
			assertRedirect(t, w, "/sign-in")
		})
	}
}

// --- 公開領域ガード ---

func TestPublicAreaGuard_Authenticated_RedirectsToRoot(t *testing.T) {
	clearer := &mockClearer{}
	guard := NewPublicAreaGuard(checkerReturning(guardUser, nil), clearer, testStores, "/")

	called := false
	w := httptest.NewRecorder()
	guard(okHandler(&called)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sign-in", nil))

	if called {
		t.Error("sign-in page must not render for an authenticated user")
	}
	assertRedirect(t, w, "/")
	if clearer.calls != 0 {
		t.Errorf("ClearSession calls = %d, want 0", clearer.calls)
	}
}

func TestPublicAreaGuard_Anonymous_Renders(t *testing.T) {
	clearer := &mockClearer{}
	guard := NewPublicAreaGuard(checkerReturning(nil, nil), clearer, testStores, "/")

	called := false
	w := httptest.NewRecorder()
	guard(okHandler(&called)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sign-in", nil))

	if !called || w.Code != http.StatusOK {
		t.Errorf("called = %v, status = %d; want page rendered", called, w.Code)
	}
	if clearer.calls != 0 {
		t.Errorf("ClearSession calls = %d, want 0", clearer.calls)
	}
}

func TestPublicAreaGuard_CheckFails_ClearsSessionAndRenders(t *testing.T) {
	tests := []struct {
		name    string
		checker *mockChecker
	}{
		{name: "checker error", checker: checkerReturning(nil, errors.New("identity provider unreachable"))},
		{name: "checker panic", checker: panickingChecker()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearer := &mockClearer{}
			guard := NewPublicAreaGuard(tt.checker, clearer, testStores, "/")

			req := httptest.NewRequest(http.MethodGet, "/sign-in", nil)
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "corrupted"})
			called := false
			w := httptest.NewRecorder()
			guard(okHandler(&called)).ServeHTTP(w, req)

			if !called || w.Code != http.StatusOK {
				t.Errorf("called = %v, status = %d; want page rendered", called, w.Code)
			}
			if clearer.calls != 1 {
				t.Errorf("ClearSession calls = %d, want 1", clearer.calls)
			}

			cookies := w.Result().Cookies()
			if len(cookies) != 1 || cookies[0].Name != session.CookieName || cookies[0].MaxAge >= 0 {
				t.Errorf("expected session cookie deletion, got %v", cookies)
			}
		})
	}
}
