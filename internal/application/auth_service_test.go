package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/oksasatya/eventhub/internal/testutil"
	"github.com/oksasatya/eventhub/pkg/helpers"
	mailtpl "github.com/oksasatya/eventhub/pkg/mailer/templates"
)

type memObjects struct {
	paths []string
	data  [][]byte
}

func (m *memObjects) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.paths = append(m.paths, objectPath)
	m.data = append(m.data, b)
	return helpers.PublicURL("bucket", objectPath), nil
}

func newAuthService(store *testutil.MemStore) *AuthService {
	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	return NewAuthService(store.Users(), jwt, nil, nil)
}

func TestSignupAndLogin(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newAuthService(store)
	pub := &recordingPublisher{}
	svc.Jobs = pub
	svc.MailEnabled = true
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupInput{Username: "ada", Email: "Ada@Example.com", Password: "secret1"}, RequestMeta{})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.Email != "ada@example.com" || u.Password == "secret1" {
		t.Fatalf("unexpected user %+v", u)
	}
	if len(pub.jobs) != 1 || pub.jobs[0].Template != mailtpl.Welcome {
		t.Fatalf("expected welcome email, got %+v", pub.jobs)
	}

	if _, err := svc.Signup(ctx, SignupInput{Username: "ada", Email: "other@example.com", Password: "secret1"}, RequestMeta{}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	got, pair, err := svc.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != u.ID || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("unexpected login result %+v %+v", got, pair)
	}
	claims, err := svc.JWT.ParseAccessToken(pair.AccessToken)
	if err != nil || claims.UserID != u.ID || claims.SessionID == "" {
		t.Fatalf("bad access token claims %+v, %v", claims, err)
	}

	if _, _, err := svc.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc := newAuthService(testutil.NewMemStore())
	tests := []SignupInput{
		{Username: "", Email: "a@example.com", Password: "secret1"},
		{Username: "ada", Email: "", Password: "secret1"},
		{Username: "ada", Email: "a@example.com", Password: "short"},
	}
	for _, in := range tests {
		if _, err := svc.Signup(context.Background(), in, RequestMeta{}); !errors.Is(err, ErrInvalidSignup) {
			t.Fatalf("expected ErrInvalidSignup for %+v, got %v", in, err)
		}
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newAuthService(store)
	ctx := context.Background()
	u, err := svc.Signup(ctx, SignupInput{Username: "ada", Email: "ada@example.com", Password: "secret1"}, RequestMeta{})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, pair, err := svc.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	next, uid, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil || uid != u.ID || next.AccessToken == "" {
		t.Fatalf("refresh: %v (%s)", err, uid)
	}
	if _, _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}

func TestResolveCallerWithoutRedis(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newAuthService(store)
	u := store.SeedUser("ada")

	c, err := svc.ResolveCaller(context.Background(), u.ID, "any")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c != (Caller{ID: u.ID, Username: "ada", Email: "ada@example.com"}) {
		t.Fatalf("unexpected caller %+v", c)
	}
	if _, err := svc.ResolveCaller(context.Background(), "missing", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUploadAvatar(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newAuthService(store)
	u := store.SeedUser("ada")
	ctx := context.Background()

	if _, err := svc.UploadAvatar(ctx, u.ID, strings.NewReader("img"), "me.png", "image/png"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}

	objects := &memObjects{}
	svc.Avatars = objects
	url, err := svc.UploadAvatar(ctx, u.ID, bytes.NewReader([]byte("img")), "Me.PNG", "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(objects.paths) != 1 || !strings.HasPrefix(objects.paths[0], "avatars/"+u.ID+"/") || !strings.HasSuffix(objects.paths[0], ".png") {
		t.Fatalf("unexpected object path %v", objects.paths)
	}
	profile, err := svc.GetProfile(ctx, u.ID)
	if err != nil || profile.AvatarURL != url {
		t.Fatalf("avatar url not saved: %+v, %v", profile, err)
	}
}

func TestAuthenticate_StoreErrorIsNotBadCredentials(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newAuthService(store)
	down := errors.New("connection refused")
	store.Fail["users.get_by_email"] = down

	_, err := svc.Authenticate(context.Background(), "ada@example.com", "secret1")
	if errors.Is(err, ErrInvalidCredentials) || !errors.Is(err, down) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
