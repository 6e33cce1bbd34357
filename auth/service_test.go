package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestService_RegisterAndLogin(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, newFakeNonces(), "test-secret")

	req := RegisterRequest{
		ClientID: "client-1",
		Email:    "Alice@Example.com",
		Password: "supersafe",
		FullName: "Alice Operator",
	}

	ctx := context.Background()
	user, err := svc.Register(ctx, req)
	if err != nil {
		t.Fatalf("register: unexpected error: %v", err)
	}

	if user.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.Role != RoleUser {
		t.Fatalf("register: expected default role %s got %s", RoleUser, user.Role)
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: req.Password})
	if err != nil {
		t.Fatalf("login: unexpected error: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login: expected token, got empty string")
	}
	if resp.User.ID != user.ID {
		t.Fatalf("login: expected user id %q got %q", user.ID, resp.User.ID)
	}

	id, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	want := Identity{UserID: user.ID, ClientID: "client-1", Role: RoleUser}
	if id != want {
		t.Fatalf("verify token: expected %+v got %+v", want, id)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, nil, "test-secret")

	_, err := svc.Register(context.Background(), RegisterRequest{
		ClientID: "client-1",
		Email:    "alice@example.com",
		Password: "short",
		FullName: "Alice Operator",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	cases := []RegisterRequest{
		{ClientID: "client-1", Password: "strongpassword"},
		{Email: "bob@example.com", FullName: "Bob", Password: "strongpassword"},
		{ClientID: "client-1", Email: "bob@example.com", FullName: "Bob", Password: "strongpassword", Role: "owner"},
	}
	for i, c := range cases {
		if _, err := svc.Register(context.Background(), c); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestService_DuplicateEmail(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, nil, "test-secret")

	req := RegisterRequest{
		ClientID: "client-1",
		Email:    "alice@example.com",
		Password: "strongpassword",
		FullName: "Alice Operator",
	}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, nil, "test-secret")

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "unknown@example.com",
		Password: "irrelevant",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_VerifyTokenRejectsForeignAndExpired(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo, nil, "test-secret").WithClock(func() time.Time { return now })

	user := repo.seed(t, "client-1", "alice@example.com", "strongpassword", RoleManager)
	resp, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "strongpassword"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other := NewService(repo, nil, "other-secret").WithClock(func() time.Time { return now })
	if _, err := other.VerifyToken(resp.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}

	now = now.Add(25 * time.Hour)
	if _, err := svc.VerifyToken(resp.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestService_MagicLinkIsSingleUse(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, newFakeNonces(), "test-secret")
	user := repo.seed(t, "client-1", "alice@example.com", "strongpassword", RoleAdmin)

	link, err := svc.IssueMagicLink(user, "https://app.chargemind.io/auth/magic?ref=email")
	if err != nil {
		t.Fatalf("issue magic link: %v", err)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if u.Query().Get("ref") != "email" {
		t.Fatalf("existing query dropped: %s", link)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatalf("missing token in %s", link)
	}

	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("magic link must not work as a session token, got %v", err)
	}

	res, err := svc.RedeemMagicLink(context.Background(), token)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if res.User.ID != user.ID || res.Token == "" {
		t.Fatalf("unexpected login result %+v", res)
	}

	if _, err := svc.RedeemMagicLink(context.Background(), token); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("expected ErrTokenUsed on second redeem, got %v", err)
	}
}

func TestService_MagicLinkExpires(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo, newFakeNonces(), "test-secret").WithClock(func() time.Time { return now })
	user := repo.seed(t, "client-1", "alice@example.com", "strongpassword", RoleUser)

	link, err := svc.IssueMagicLink(user, "https://app.chargemind.io/auth/magic")
	if err != nil {
		t.Fatalf("issue magic link: %v", err)
	}
	u, _ := url.Parse(link)

	now = now.Add(16 * time.Minute)
	if _, err := svc.RedeemMagicLink(context.Background(), u.Query().Get("token")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestService_TemporaryPasswords(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, nil, "test-secret")
	ctx := context.Background()

	user, password, err := svc.CreateWithTemporaryPassword(ctx, "client-1", "New@Shop.com", "", RoleAdmin)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(password) != 16 {
		t.Fatalf("expected 16 character password, got %q", password)
	}
	if !user.MustChangePassword {
		t.Fatal("expected must_change_password on provisioned user")
	}
	if user.FullName != "new@shop.com" {
		t.Fatalf("expected email as fallback name, got %q", user.FullName)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "new@shop.com", Password: password}); err != nil {
		t.Fatalf("login with temporary password: %v", err)
	}

	reset, err := svc.IssueTemporaryPassword(ctx, user.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset == password {
		t.Fatal("expected a fresh password")
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "new@shop.com", Password: password}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should stop working, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "new@shop.com", Password: reset}); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}

	if _, err := svc.IssueTemporaryPassword(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

type fakeRepository struct {
	usersByEmail map[string]User
	usersByID    map[string]User
	nextID       int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		usersByEmail: make(map[string]User),
		usersByID:    make(map[string]User),
		nextID:       1,
	}
}

func (f *fakeRepository) seed(t *testing.T, clientID, email, password string, role Role) User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user, err := f.CreateUser(context.Background(), CreateUserParams{
		ClientID:     clientID,
		Email:        email,
		FullName:     email,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return user
}

func (f *fakeRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if _, exists := f.usersByEmail[strings.ToLower(params.Email)]; exists {
		return User{}, ErrDuplicateEmail
	}

	id := fmt.Sprintf("user-%d", f.nextID)
	f.nextID++

	user := User{
		ID:                 id,
		ClientID:           params.ClientID,
		Email:              params.Email,
		FullName:           params.FullName,
		PasswordHash:       params.PasswordHash,
		Role:               params.Role,
		MustChangePassword: params.MustChangePassword,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}

	f.usersByEmail[strings.ToLower(user.Email)] = user
	f.usersByID[user.ID] = user

	return user, nil
}

func (f *fakeRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	user, ok := f.usersByEmail[strings.ToLower(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeRepository) GetUserByID(ctx context.Context, userID string) (User, error) {
	user, ok := f.usersByID[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, mustChange bool) error {
	user, ok := f.usersByID[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.MustChangePassword = mustChange
	f.usersByID[userID] = user
	f.usersByEmail[strings.ToLower(user.Email)] = user
	return nil
}

type fakeNonces struct {
	seen map[string]bool
}

func newFakeNonces() *fakeNonces { return &fakeNonces{seen: map[string]bool{}} }

func (f *fakeNonces) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if f.seen[id] {
		return false, nil
	}
	f.seen[id] = true
	return true, nil
}
