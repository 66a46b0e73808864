package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned by TryLock when another holder owns the lock.
var ErrLocked = errors.New("cache: lock is already held")

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// ImportLockKey names the lock guarding imports of one playlist URL.
func ImportLockKey(playlistURL string) string {
	sum := sha256.Sum256([]byte(playlistURL))
	return Key("lock", "import", hex.EncodeToString(sum[:8]))
}

// TryLock acquires key with SET NX EX. The returned unlock must be called to
// release it early; otherwise it expires after ttl.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (unlock func(), err error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// Request context may already be cancelled.
		_ = r.client.Eval(context.Background(), releaseScript, []string{key}, token).Err()
	}, nil
}
