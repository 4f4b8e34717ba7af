package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "sphere-game-data/backend/internal/domain/user"
	"sphere-game-data/backend/internal/infra/token"
	"sphere-game-data/backend/internal/infra/validation"
	"sphere-game-data/backend/internal/repository"
	"sphere-game-data/backend/internal/testsupport"

	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) (*Service, *repository.UserRepository) {
	t.Helper()

	db := testsupport.OpenSQLite(t, &domain.User{}, &domain.AuthToken{})
	users := repository.NewUserRepository(db)
	svc := NewService(users, repository.NewTokenRepository(db))
	return svc, users
}

func strPtr(v string) *string { return &v }

func login(svc *Service, username, password string) (Session, error) {
	return svc.Login(context.Background(), LoginParams{Username: strPtr(username), Password: strPtr(password)})
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	user, err := svc.CreateUser(context.Background(), CreateUserParams{Username: " alice ", Password: "password123"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == 0 || user.Username != "alice" || !user.IsActive || user.IsStaff {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")); err != nil {
		t.Fatalf("password not hashed correctly: %v", err)
	}

	if _, err := svc.CreateUser(context.Background(), CreateUserParams{Username: "alice", Password: "other"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestLoginReusesToken(t *testing.T) {
	svc, users := newTestAuthService(t)
	fixed := time.Date(2024, 4, 5, 6, 7, 8, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if _, err := svc.CreateUser(context.Background(), CreateUserParams{Username: "staff", Password: "s3cret", IsStaff: true}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	first, err := login(svc, "staff", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(first.Token) != token.KeyLength {
		t.Fatalf("unexpected token: %q", first.Token)
	}
	second, err := login(svc, "staff", "s3cret")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first.Token != second.Token {
		t.Fatalf("expected the same token on repeated login")
	}

	stored, err := users.FindByUsername(context.Background(), "staff")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.LastLoginAt == nil || !stored.LastLoginAt.Equal(fixed) {
		t.Fatalf("last_login_at not updated: %v", stored.LastLoginAt)
	}
}

func TestLoginDoesNotRevealWhichPartFailed(t *testing.T) {
	svc, users := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, CreateUserParams{Username: "bob", Password: "right"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	inactive, err := svc.CreateUser(ctx, CreateUserParams{Username: "carol", Password: "right"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	inactive.IsActive = false
	if err := users.Update(ctx, inactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	for _, tc := range []struct{ username, password string }{
		{"bob", "wrong"},
		{"nobody", "right"},
		{"carol", "right"},
	} {
		if _, err := login(svc, tc.username, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s/%s: expected invalid credentials, got %v", tc.username, tc.password, err)
		}
	}
}

func TestLoginValidationShortCircuits(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), LoginParams{Password: strPtr("   ")})
	verr, ok := validation.As(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := verr.Fields["username"]; len(got) != 1 || got[0] != validation.MsgRequired {
		t.Fatalf("unexpected username error: %v", got)
	}
	if got := verr.Fields["password"]; len(got) != 1 || got[0] != validation.MsgBlank {
		t.Fatalf("unexpected password error: %v", got)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("structural errors must not be reported as invalid credentials")
	}
}

func TestAuthenticateAndLogout(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserParams{Username: "dave", Password: "pw", IsStaff: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	session, err := login(svc, "dave", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	identity, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !identity.Authenticated || !identity.IsStaff || identity.UserID != user.ID || identity.Username != "dave" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if err := svc.Logout(ctx, identity); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("revoked token must be rejected, got %v", err)
	}

	renewed, err := login(svc, "dave", "pw")
	if err != nil {
		t.Fatalf("login after logout: %v", err)
	}
	if renewed.Token == session.Token {
		t.Fatalf("expected a fresh token after logout")
	}

	if err := svc.Logout(ctx, domain.Anonymous()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("anonymous logout: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "  "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("blank token: expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticateWithMemoryStore(t *testing.T) {
	db := testsupport.OpenSQLite(t, &domain.User{})
	svc := NewService(repository.NewUserRepository(db), token.NewMemoryTokenStore())
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, CreateUserParams{Username: "erin", Password: "pw"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	session, err := login(svc, "erin", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	identity, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.IsStaff {
		t.Fatalf("non-staff user must not be reported as staff")
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	created, user, key, err := svc.EnsureAdmin(ctx, "admin", "admin-pass")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if !created || !user.IsStaff || !user.IsSuperuser || key == "" {
		t.Fatalf("unexpected first run: created=%v user=%+v key=%q", created, user, key)
	}

	createdAgain, again, keyAgain, err := svc.EnsureAdmin(ctx, "admin", "ignored")
	if err != nil {
		t.Fatalf("ensure admin again: %v", err)
	}
	if createdAgain || again.ID != user.ID || keyAgain != key {
		t.Fatalf("second run should reuse the existing admin: created=%v id=%d key=%q", createdAgain, again.ID, keyAgain)
	}

	session, err := login(svc, "admin", "admin-pass")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if session.Token != key {
		t.Fatalf("login should return the seeded token")
	}
}
