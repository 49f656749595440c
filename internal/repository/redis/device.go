package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/citywatch/report-api/internal/repository"
)

const deviceUserIDKey = "userId"

type deviceStore struct {
	kv KV
	mu sync.Mutex
}

func NewDeviceStore(kv KV) repository.DeviceStore {
	return &deviceStore{kv: kv}
}

// EnsureUserID reads the persisted device user id, minting a timestamp token
// on first use. Serialized so two first calls cannot mint two ids.
func (s *deviceStore) EnsureUserID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, found, err := s.kv.Get(ctx, deviceUserIDKey)
	if err != nil {
		return "", fmt.Errorf("failed to read device user id: %w", err)
	}
	if found && id != "" {
		return id, nil
	}

	id = strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := s.kv.Set(ctx, deviceUserIDKey, id); err != nil {
		return "", fmt.Errorf("failed to persist device user id: %w", err)
	}
	return id, nil
}
