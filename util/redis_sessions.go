package util

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariebrainware/rhinitis-care/config"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotCached is returned when Redis is disabled or has no entry
// for a token; callers fall back to the sessions table.
var ErrSessionNotCached = errors.New("session not cached")

// removeSessionScript removes the token and deletes the set once empty.
const removeSessionScript = `
local removed = redis.call('SREM', KEYS[1], ARGV[1])
if removed > 0 and redis.call('SCARD', KEYS[1]) == 0 then
	redis.call('DEL', KEYS[1])
end
return removed
`

func sessionKey(token string) string {
	return "session:" + token
}

func userSessionsKey(userID uint) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

// CacheSession stores "userID:roleID" under session:<token> with ttl and
// records the token in the per-user set.
func CacheSession(ctx context.Context, token string, userID uint, roleID uint32, ttl time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	value := fmt.Sprintf("%d:%d", userID, roleID)
	if err := rdb.Set(ctx, sessionKey(token), value, ttl).Err(); err != nil {
		return err
	}
	return AddSessionToUserSet(ctx, userID, token)
}

// LookupCachedSession resolves a token through Redis.
func LookupCachedSession(ctx context.Context, token string) (uint, uint32, error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return 0, 0, ErrSessionNotCached
	}
	val, err := rdb.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, ErrSessionNotCached
	}
	if err != nil {
		return 0, 0, err
	}
	return parseSessionValue(val)
}

func parseSessionValue(val string) (uint, uint32, error) {
	userPart, rolePart, ok := strings.Cut(val, ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed session value %q", val)
	}
	userID, err := strconv.ParseUint(userPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed session user id: %w", err)
	}
	roleID, err := strconv.ParseUint(rolePart, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed session role id: %w", err)
	}
	return uint(userID), uint32(roleID), nil
}

// DropCachedSession deletes one session key and its set membership.
func DropCachedSession(ctx context.Context, userID uint, token string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	if err := rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return err
	}
	return RemoveSessionTokenFromUserSet(ctx, userID, token)
}

// AddSessionToUserSet adds the session token to the per-user set. The set
// has no TTL and is cleaned up explicitly.
func AddSessionToUserSet(ctx context.Context, userID uint, token string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	key := userSessionsKey(userID)
	if err := rdb.SAdd(ctx, key, token).Err(); err != nil {
		return err
	}
	return rdb.Persist(ctx, key).Err()
}

// RemoveSessionTokenFromUserSet removes a single session token from the per-user set.
func RemoveSessionTokenFromUserSet(ctx context.Context, userID uint, token string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	return rdb.Eval(ctx, removeSessionScript, []string{userSessionsKey(userID)}, token).Err()
}

// InvalidateUserSessions deletes every session:<token> key of the user and
// the per-user set.
func InvalidateUserSessions(ctx context.Context, userID uint) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	key := userSessionsKey(userID)
	members, err := rdb.SMembers(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if len(members) > 0 {
		keys := make([]string, 0, len(members))
		for _, tok := range members {
			keys = append(keys, sessionKey(tok))
		}
		if err := rdb.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return rdb.Del(ctx, key).Err()
}
