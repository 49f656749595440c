package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/citywatch/report-api/internal/model"
	"github.com/citywatch/report-api/internal/repository"
	apperrors "github.com/citywatch/report-api/pkg/errors"
)

const (
	defaultSessionTTL = 24 * time.Hour
	cleanupInterval   = 10 * time.Minute
)

// Provider is the explicit session object: snapshots are opened on login,
// looked up by token, and closed on logout. It also owns the stable
// device-scoped user id used to namespace the notification store.
type Provider struct {
	sessions *cache.Cache
	devices  repository.DeviceStore
}

func NewProvider(devices repository.DeviceStore, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Provider{
		sessions: cache.New(ttl, cleanupInterval),
		devices:  devices,
	}
}

// Open stores a session snapshot keyed by its token.
func (p *Provider) Open(s *model.Session) {
	p.sessions.SetDefault(s.Token, s)
}

// Current returns the session snapshot for a token.
func (p *Provider) Current(token string) (*model.Session, error) {
	v, found := p.sessions.Get(token)
	if !found {
		return nil, apperrors.Unauthorized(nil)
	}
	return v.(*model.Session), nil
}

// Close drops the session. Persisted notification data is not touched.
func (p *Provider) Close(token string) {
	p.sessions.Delete(token)
}

// DeviceUserID returns the persisted per-device user id, generating it on
// first call.
func (p *Provider) DeviceUserID(ctx context.Context) (string, error) {
	return p.devices.EnsureUserID(ctx)
}
