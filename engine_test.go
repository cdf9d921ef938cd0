package tokengate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tokengate/token"
)

type memUserStore struct {
	mu    sync.RWMutex
	users map[string]UserRecord
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]UserRecord{}}
}

func (s *memUserStore) GetByIdentifier(_ context.Context, identifier string) (UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[identifier]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return rec, nil
}

func (s *memUserStore) Create(_ context.Context, in CreateUserInput) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := UserRecord{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: in.PasswordHash,
	}
	s.users[rec.Username] = rec
	s.users[rec.Email] = rec
	return rec, nil
}

var (
	testAccessSecret  = []byte("test-access-secret")
	testRefreshSecret = []byte("test-refresh-secret")
)

func newTestEngine(t *testing.T) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := New().
		WithSecrets(testAccessSecret, testRefreshSecret).
		WithRedis(rdb).
		WithUserStore(newMemUserStore()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr
}

func registerAnn(t *testing.T, engine *Engine) (User, *TokenPair) {
	t.Helper()
	user, pair, err := engine.Register(context.Background(), RegisterRequest{
		Username: "ann",
		Name:     "Ann",
		Email:    "ann@example.com",
		Password: "p1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return user, pair
}

// expiredAccessToken mints an access token that expired an hour ago, signed
// with the same secret the test engine verifies against.
func expiredAccessToken(t *testing.T, subject, username string) string {
	t.Helper()
	backdated, err := token.NewManager(token.Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "tokengate",
		Now:           func() time.Time { return time.Now().Add(-2 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	tok, err := backdated.IssueAccess(subject, username)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return tok
}

func TestRegisterIssuesWorkingPair(t *testing.T) {
	engine, _ := newTestEngine(t)
	user, pair := registerAnn(t, engine)

	if user.Username != "ann" || user.ID == "" {
		t.Fatalf("user = %+v", user)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("pair = %+v", pair)
	}

	res, err := engine.Authenticate(context.Background(), pair.AccessToken, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if res.Renewed() {
		t.Fatal("fresh pair must not trigger renewal")
	}
	if res.User != user {
		t.Fatalf("authenticated user = %+v, registered = %+v", res.User, user)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	engine, _ := newTestEngine(t)
	registerAnn(t, engine)

	_, _, err := engine.Register(context.Background(), RegisterRequest{
		Username: "ann", Email: "other@example.com", Password: "p2",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate username: err = %v", err)
	}

	_, _, err = engine.Register(context.Background(), RegisterRequest{
		Username: "bea", Email: "ann@example.com", Password: "p2",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate email: err = %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, _, err := engine.Register(context.Background(), RegisterRequest{Username: "ann"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoginRotatesRefreshToken(t *testing.T) {
	engine, _ := newTestEngine(t)
	user, firstPair := registerAnn(t, engine)

	loginUser, secondPair, err := engine.Login(context.Background(), "ann", "p1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loginUser != user {
		t.Fatalf("login user = %+v, want %+v", loginUser, user)
	}
	if secondPair.RefreshToken == firstPair.RefreshToken {
		t.Fatal("login must rotate the refresh token")
	}

	// The rotated-away refresh token is dead even alongside a valid
	// access token.
	_, err = engine.Authenticate(context.Background(), secondPair.AccessToken, firstPair.RefreshToken)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("old refresh token: err = %v, want ErrForbidden", err)
	}

	if _, err := engine.Authenticate(context.Background(), secondPair.AccessToken, secondPair.RefreshToken); err != nil {
		t.Fatalf("new pair: %v", err)
	}
}

func TestLoginWrongPasswordLeavesSessionIntact(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, pair := registerAnn(t, engine)

	_, _, err := engine.Login(context.Background(), "ann", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}

	// The stored refresh token was not touched by the failed login.
	if _, err := engine.Authenticate(context.Background(), pair.AccessToken, pair.RefreshToken); err != nil {
		t.Fatalf("existing session must survive a failed login: %v", err)
	}
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	engine, _ := newTestEngine(t)
	registerAnn(t, engine)

	_, _, unknownErr := engine.Login(context.Background(), "nobody", "p1")
	_, _, badPassErr := engine.Login(context.Background(), "ann", "wrong")

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(badPassErr, ErrInvalidCredentials) {
		t.Fatalf("errs = %v, %v", unknownErr, badPassErr)
	}
	if unknownErr.Error() != badPassErr.Error() {
		t.Fatalf("failure modes must be indistinguishable: %q vs %q", unknownErr, badPassErr)
	}
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, pair := registerAnn(t, engine)

	for _, tc := range [][2]string{
		{"", ""},
		{pair.AccessToken, ""},
		{"", pair.RefreshToken},
	} {
		if _, err := engine.Authenticate(context.Background(), tc[0], tc[1]); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("access set=%v refresh set=%v: err = %v, want ErrUnauthorized", tc[0] != "", tc[1] != "", err)
		}
	}
}

func TestAuthenticateRenewsExpiredAccess(t *testing.T) {
	engine, _ := newTestEngine(t)
	user, pair := registerAnn(t, engine)

	expired := expiredAccessToken(t, user.ID, user.Username)

	res, err := engine.Authenticate(context.Background(), expired, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !res.Renewed() {
		t.Fatal("expected a renewed access token")
	}
	if res.User != user {
		t.Fatalf("renewed identity = %+v, want %+v", res.User, user)
	}

	// The replacement verifies strictly and carries the same identity.
	got, err := engine.ValidateAccess(res.RenewedAccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if got != user {
		t.Fatalf("renewed claims = %+v, want %+v", got, user)
	}

	// Renewal never rotates the refresh token.
	if _, err := engine.Authenticate(context.Background(), res.RenewedAccessToken, pair.RefreshToken); err != nil {
		t.Fatalf("refresh token must stay live after renewal: %v", err)
	}
}

func TestAuthenticateTamperedAccess(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, pair := registerAnn(t, engine)

	parts := strings.Split(pair.AccessToken, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err := engine.Authenticate(context.Background(), tampered, pair.RefreshToken)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestAuthenticateGarbageRefresh(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, pair := registerAnn(t, engine)

	_, err := engine.Authenticate(context.Background(), pair.AccessToken, "not-a-jwt")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	engine, _ := newTestEngine(t)
	user, pair := registerAnn(t, engine)

	if err := engine.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, err := engine.Authenticate(context.Background(), pair.AccessToken, pair.RefreshToken)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("after logout: err = %v, want ErrForbidden", err)
	}

	// Logout with no live session is a no-op.
	if err := engine.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("repeated Logout: %v", err)
	}
}

func TestLogoutTokenAfterRotationKeepsNewSession(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, firstPair := registerAnn(t, engine)

	_, secondPair, err := engine.Login(context.Background(), "ann", "p1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Revoking the stale token must not kill the rotated session.
	if err := engine.LogoutToken(context.Background(), firstPair.RefreshToken); err != nil {
		t.Fatalf("LogoutToken: %v", err)
	}
	if _, err := engine.Authenticate(context.Background(), secondPair.AccessToken, secondPair.RefreshToken); err != nil {
		t.Fatalf("rotated session must survive stale revoke: %v", err)
	}

	if err := engine.LogoutToken(context.Background(), secondPair.RefreshToken); err != nil {
		t.Fatalf("LogoutToken: %v", err)
	}
	if _, err := engine.Authenticate(context.Background(), secondPair.AccessToken, secondPair.RefreshToken); !errors.Is(err, ErrForbidden) {
		t.Fatalf("after revoke: err = %v, want ErrForbidden", err)
	}
}

func TestIssueFailsWhenStoreDown(t *testing.T) {
	engine, mr := newTestEngine(t)
	registerAnn(t, engine)
	mr.Close()

	_, pair, err := engine.Login(context.Background(), "ann", "p1")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if pair != nil {
		t.Fatalf("no pair may be issued when persistence fails, got %+v", pair)
	}
}

func TestAuthenticateStoreDown(t *testing.T) {
	engine, mr := newTestEngine(t)
	_, pair := registerAnn(t, engine)
	mr.Close()

	_, err := engine.Authenticate(context.Background(), pair.AccessToken, pair.RefreshToken)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestValidateAccessRejectsExpired(t *testing.T) {
	engine, _ := newTestEngine(t)
	user, _ := registerAnn(t, engine)

	expired := expiredAccessToken(t, user.ID, user.Username)
	if _, err := engine.ValidateAccess(expired); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestIssueTokenPairReplacesStored(t *testing.T) {
	engine, _ := newTestEngine(t)
	user, firstPair := registerAnn(t, engine)

	secondPair, err := engine.IssueTokenPair(context.Background(), user.ID, user.Username)
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}

	if _, err := engine.Authenticate(context.Background(), firstPair.AccessToken, firstPair.RefreshToken); !errors.Is(err, ErrForbidden) {
		t.Fatalf("replaced refresh token: err = %v, want ErrForbidden", err)
	}
	if _, err := engine.Authenticate(context.Background(), secondPair.AccessToken, secondPair.RefreshToken); err != nil {
		t.Fatalf("new pair: %v", err)
	}
}

func TestRefreshCookieShape(t *testing.T) {
	engine, _ := newTestEngine(t)

	cookie := engine.RefreshCookie("some-token")
	if cookie.Name != "refreshToken" || cookie.Value != "some-token" {
		t.Fatalf("cookie = %+v", cookie)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.Path != "/" {
		t.Fatalf("cookie attributes = %+v", cookie)
	}
	if cookie.SameSite != http.SameSiteNoneMode {
		t.Fatalf("SameSite = %v", cookie.SameSite)
	}
	if want := int(24 * time.Hour / time.Second); cookie.MaxAge != want {
		t.Fatalf("MaxAge = %d, want %d", cookie.MaxAge, want)
	}

	cleared := engine.ClearRefreshCookie()
	if cleared.MaxAge != -1 || cleared.Value != "" {
		t.Fatalf("cleared cookie = %+v", cleared)
	}
}

func TestMetricsCountOperations(t *testing.T) {
	engine, _ := newTestEngine(t)
	user, pair := registerAnn(t, engine)

	if _, err := engine.Authenticate(context.Background(), pair.AccessToken, pair.RefreshToken); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := engine.Authenticate(context.Background(), "", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if err := engine.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricRegisterSuccess] != 1 {
		t.Fatalf("register success = %d", snap.Counters[MetricRegisterSuccess])
	}
	if snap.Counters[MetricPairIssued] != 1 {
		t.Fatalf("pair issued = %d", snap.Counters[MetricPairIssued])
	}
	if snap.Counters[MetricAuthAccepted] != 1 {
		t.Fatalf("auth accepted = %d", snap.Counters[MetricAuthAccepted])
	}
	if snap.Counters[MetricAuthRejected] != 1 {
		t.Fatalf("auth rejected = %d", snap.Counters[MetricAuthRejected])
	}
	if snap.Counters[MetricLogout] != 1 {
		t.Fatalf("logout = %d", snap.Counters[MetricLogout])
	}
}

func TestEngineWithoutUserStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := New().
		WithSecrets(testAccessSecret, testRefreshSecret).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, _, err := engine.Register(context.Background(), RegisterRequest{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Register: err = %v", err)
	}
	if _, _, err := engine.Login(context.Background(), "ann", "p1"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Login: err = %v", err)
	}

	// Issuance and authentication still work without a user store.
	pair, err := engine.IssueTokenPair(context.Background(), "u1", "ann")
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}
	if _, err := engine.Authenticate(context.Background(), pair.AccessToken, pair.RefreshToken); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
}
