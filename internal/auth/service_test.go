package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/redis/redistest"
)

var testJWT = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "storefront",
	ExpirationMinutes:      30,
	RefreshTokenTTLMinutes: 120,
}

// Cheap argon2 params keep the tests fast.
var testPassword = config.PasswordConfig{
	ArgonMemoryKB:    1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

type fixture struct {
	svc      Service
	repo     *users.Repository
	sessions *session.Manager
	now      time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := users.NewRepository(dbtest.Open(t))
	client, _ := redistest.NewClient()
	sessions, err := session.NewManager(client, testJWT)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	// Redis session TTLs run on the wall clock, so the service clock follows it.
	now := time.Now().UTC().Truncate(time.Second)
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
		Now:            func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return fixture{svc: svc, repo: repo, sessions: sessions, now: now}
}

func TestRegisterIssuesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Register(ctx, RegisterRequest{Login: "alice", Email: " Alice@Example.com ", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", resp.User.Email)
	}
	if resp.User.Role != enums.UserRoleBuyer {
		t.Fatalf("expected buyer role, got %s", resp.User.Role)
	}

	claims, err := pkgAuth.ParseAccessTokenAt(testJWT, resp.AccessToken, f.now)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	ok, err := f.sessions.HasSession(ctx, claims.ID)
	if err != nil || !ok {
		t.Fatalf("expected session for jti %s (err=%v)", claims.ID, err)
	}
}

func TestRegisterRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, RegisterRequest{Login: "alice", Email: "alice@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("seed register: %v", err)
	}

	cases := []struct {
		name string
		req  RegisterRequest
		code pkgerrors.Code
	}{
		{"short password", RegisterRequest{Login: "bob", Email: "bob@example.com", Password: "short"}, pkgerrors.CodeValidation},
		{"numeric password", RegisterRequest{Login: "bob", Email: "bob@example.com", Password: "1234567890"}, pkgerrors.CodeValidation},
		{"password equals login", RegisterRequest{Login: "bobthebuilder", Email: "bob@example.com", Password: "bobthebuilder"}, pkgerrors.CodeValidation},
		{"duplicate login", RegisterRequest{Login: "alice", Email: "other@example.com", Password: "correct-horse"}, pkgerrors.CodeConflict},
		{"duplicate email", RegisterRequest{Login: "bob", Email: "ALICE@example.com", Password: "correct-horse"}, pkgerrors.CodeConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tc.req)
			if got := pkgerrors.CodeOf(err); got != tc.code {
				t.Fatalf("expected %s, got %s (%v)", tc.code, got, err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, RegisterRequest{Login: "alice", Email: "alice@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User.LastLoginAt == nil {
		t.Fatal("expected last login to be recorded")
	}

	if _, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrong-horse"}); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for bad password, got %v", err)
	}
	if _, err := f.svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "correct-horse"}); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestLoginInactiveUserForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Register(ctx, RegisterRequest{Login: "alice", Email: "alice@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.repo.DB(ctx).Model(&models.User{}).Where("id = ?", resp.User.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err = f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "correct-horse"})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	_, err = f.svc.Refresh(ctx, RefreshRequest{RefreshToken: resp.RefreshToken})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden on refresh, got %v", err)
	}
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Register(ctx, RegisterRequest{Login: "alice", Email: "alice@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	second, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}
	if _, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: first.RefreshToken}); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected replayed refresh token to be rejected, got %v", err)
	}

	claims, err := pkgAuth.ParseAccessTokenAt(testJWT, second.AccessToken, f.now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := f.svc.Logout(ctx, claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if ok, _ := f.sessions.HasSession(ctx, claims.ID); ok {
		t.Fatal("expected session to be revoked")
	}
	if err := f.svc.Logout(ctx, ""); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for empty access id, got %v", err)
	}
}

func TestLoginUpgradesStaleHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, RegisterRequest{Login: "alice", Email: "alice@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	before, err := f.repo.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}

	raised := testPassword
	raised.ArgonTime = 2
	svc, err := NewService(ServiceParams{
		UserRepo:       f.repo,
		SessionManager: f.sessions,
		JWTConfig:      testJWT,
		PasswordConfig: raised,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	after, err := f.repo.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if after.PasswordHash == before.PasswordHash {
		t.Fatal("expected the stored hash to be replaced")
	}
	if !strings.Contains(after.PasswordHash, "t=2") {
		t.Fatalf("expected upgraded time cost, got %q", after.PasswordHash)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("login with upgraded hash: %v", err)
	}
}
