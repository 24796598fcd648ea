package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinrec/clinrec/internal/domain/access"
)

var testSigningKey = []byte("test-signing-key")

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func testClaims(sub string, role, profileID string) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:      role,
		ProfileID: profileID,
	}
}

func runJWT(t *testing.T, authHeader string) (*httptest.ResponseRecorder, access.Actor, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotActor access.Actor
	var gotOK bool
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})
	handler := mw(func(c echo.Context) error {
		gotActor, gotOK = ActorFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, gotActor, gotOK
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	accountID := uuid.New()
	profileID := uuid.New()
	token := signToken(t, testClaims(accountID.String(), "doctor", profileID.String()))

	rec, actor, ok := runJWT(t, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !ok {
		t.Fatal("expected actor in request context")
	}
	if actor.ID != accountID || actor.Role != access.RoleDoctor || actor.ProfileID != profileID {
		t.Errorf("actor = %+v, want account %s doctor profile %s", actor, accountID, profileID)
	}
}

func TestJWTMiddleware_NoProfileClaim(t *testing.T) {
	token := signToken(t, testClaims(uuid.New().String(), "patient", ""))

	rec, actor, _ := runJWT(t, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if actor.ProfileID != uuid.Nil {
		t.Errorf("profile id = %s, want nil uuid when the token carries none", actor.ProfileID)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	rec, _, ok := runJWT(t, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if ok {
		t.Error("actor must not be set for unauthenticated requests")
	}
}

func TestJWTMiddleware_BadScheme(t *testing.T) {
	rec, _, _ := runJWT(t, "Basic abc123")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestJWTMiddleware_UnknownRole(t *testing.T) {
	token := signToken(t, testClaims(uuid.New().String(), "superuser", ""))
	rec, _, _ := runJWT(t, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for unknown role", rec.Code)
	}
}

func TestJWTMiddleware_NonUUIDSubject(t *testing.T) {
	token := signToken(t, testClaims("bob", "doctor", ""))
	rec, _, _ := runJWT(t, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for non-uuid subject", rec.Code)
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	claims := testClaims(uuid.New().String(), "doctor", "")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	token := signToken(t, claims)

	rec, _, _ := runJWT(t, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for expired token", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(actor access.Actor, roles ...access.Role) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(ContextWithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := RequireRole(roles...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		if err := handler(c); err != nil {
			e.HTTPErrorHandler(err, c)
		}
		return rec.Code
	}

	admin := access.Actor{ID: uuid.New(), Role: access.RoleAdmin}
	doctor := access.Actor{ID: uuid.New(), Role: access.RoleDoctor}

	if code := run(admin, access.RoleAdmin); code != http.StatusOK {
		t.Errorf("admin on admin route: status = %d, want 200", code)
	}
	if code := run(doctor, access.RoleAdmin); code != http.StatusForbidden {
		t.Errorf("doctor on admin route: status = %d, want 403", code)
	}
	if code := run(doctor, access.RoleDoctor, access.RoleAdmin); code != http.StatusOK {
		t.Errorf("doctor on doctor-or-admin route: status = %d, want 200", code)
	}
}

func TestRequireRole_NoActor(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequireRole(access.RoleAdmin)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without an actor", rec.Code)
	}
}

func TestDevAuthMiddleware_DefaultsToAdmin(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := DevAuthMiddleware()(func(c echo.Context) error {
		actor, ok := ActorFromContext(c.Request().Context())
		if !ok {
			t.Fatal("expected dev actor in context")
		}
		if actor.Role != access.RoleAdmin {
			t.Errorf("role = %s, want admin", actor.Role)
		}
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
