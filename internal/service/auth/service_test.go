package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citywatch/report-api/internal/model"
	"github.com/citywatch/report-api/internal/service/session"
	"github.com/citywatch/report-api/pkg/auth"
	apperrors "github.com/citywatch/report-api/pkg/errors"
	"github.com/citywatch/report-api/pkg/metrics"
	"github.com/citywatch/report-api/pkg/security"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = uuid.New()
	f.users[user.Email] = user
	return nil
}

func (f *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user", nil)
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user", nil)
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.Email] = user
	return nil
}

type fakeDeviceStore struct{}

func (fakeDeviceStore) EnsureUserID(ctx context.Context) (string, error) {
	return "device-1", nil
}

var (
	testMetricsOnce sync.Once
	testMetrics     *metrics.Metrics
)

func newTestService() (*Service, *session.Provider) {
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewMetrics("reportapi", "authtest")
	})
	logger := zerolog.Nop()
	sessions := session.NewProvider(fakeDeviceStore{}, time.Hour)
	jwtSvc := auth.NewJWTService("test-secret", time.Hour)
	hasher := security.NewBcryptHasher(4)
	svc := NewService(newFakeUserRepo(), jwtSvc, hasher, sessions, nil, &logger, testMetrics)
	return svc, sessions
}

func registerRequest() *model.RegisterRequest {
	return &model.RegisterRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "password123",
		City:     "Springfield",
	}
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService()

	user, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	assert.Equal(t, "jdoe", user.Username)
	assert.Equal(t, model.UserRoleCitizen, user.Role)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "password123", user.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerRequest())
	assert.ErrorIs(t, err, model.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, sessions := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	resp, err := svc.Login(ctx, "jdoe@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "jdoe@example.com", resp.User.Email)

	// Login opened a session
	sess, err := sessions.Current(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, model.UserRoleCitizen, sess.Role)

	// Token carries the right claims
	claims, err := svc.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, model.UserRoleCitizen, claims.Role)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = svc.Login(ctx, "jdoe@example.com", "wrong-password")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestLogoutClosesSessionOnly(t *testing.T) {
	svc, sessions := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	resp, err := svc.Login(ctx, "jdoe@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.Token))

	_, err = sessions.Current(resp.Token)
	assert.Error(t, err)

	// The token itself still validates: logout clears the session, not the
	// signing key. Authorization relies on the session snapshot being gone.
	_, err = svc.ValidateToken(ctx, resp.Token)
	assert.NoError(t, err)
}
