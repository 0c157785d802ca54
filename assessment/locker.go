package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a patient's lock is not acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for patient lock")

// Locker serializes intake processing per patient.
type Locker interface {
	// Lock blocks until the patient's lock is held or ctx is done. The
	// returned func releases it and is safe to call once.
	Lock(ctx context.Context, patientID uint) (func(), error)
}

const (
	defaultLockTTL   = 10 * time.Second
	defaultLockRetry = 50 * time.Millisecond
	defaultLockWait  = 5 * time.Second
)

// releaseLockScript deletes the key only while it still holds our token.
const releaseLockScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisLocker is a lease lock shared by every process on the same Redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	wait   time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, ttl: defaultLockTTL, retry: defaultLockRetry, wait: defaultLockWait}
}

func patientLockKey(patientID uint) string {
	return fmt.Sprintf("lock:assessment:%d", patientID)
}

func (l *RedisLocker) Lock(ctx context.Context, patientID uint) (func(), error) {
	key := patientLockKey(patientID)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("acquire patient lock: %w", err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// the request context may already be done
					_ = l.client.Eval(context.Background(), releaseLockScript, []string{key}, token).Err()
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w %d: %v", ErrLockTimeout, patientID, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

// LocalLocker serializes within one process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[uint]*localLock
}

type localLock struct {
	sem     chan struct{}
	waiters int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[uint]*localLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, patientID uint) (func(), error) {
	l.mu.Lock()
	ll, ok := l.locks[patientID]
	if !ok {
		ll = &localLock{sem: make(chan struct{}, 1)}
		l.locks[patientID] = ll
	}
	ll.waiters++
	l.mu.Unlock()

	select {
	case ll.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(patientID, ll, false)
		return nil, fmt.Errorf("%w %d: %v", ErrLockTimeout, patientID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(patientID, ll, true) })
	}, nil
}

func (l *LocalLocker) release(patientID uint, ll *localLock, held bool) {
	if held {
		<-ll.sem
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ll.waiters--
	if ll.waiters == 0 {
		delete(l.locks, patientID)
	}
}
