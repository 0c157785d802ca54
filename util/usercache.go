package util

import (
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

const userEmailTTL = 30 * time.Minute

var (
	userCacheMu  sync.RWMutex
	userCache    *cache.Cache
	userCacheCap int
)

// InitUserEmailCache prepares the userID -> email cache used by request
// logging. capacity <= 0 means 1000 entries.
func InitUserEmailCache(capacity int) {
	if capacity <= 0 {
		capacity = 1000
	}
	userCacheMu.Lock()
	defer userCacheMu.Unlock()
	userCache = cache.New(userEmailTTL, 2*userEmailTTL)
	userCacheCap = capacity
}

func userCacheKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// UserEmailCacheGet returns email and true if present in cache.
func UserEmailCacheGet(userID uint) (string, bool) {
	userCacheMu.RLock()
	c := userCache
	userCacheMu.RUnlock()
	if c == nil {
		return "", false
	}
	v, ok := c.Get(userCacheKey(userID))
	if !ok {
		return "", false
	}
	return v.(string), true
}

// UserEmailCacheSet stores the email for userID. Once the cache is full
// expired entries are purged and, if still full, the entry is not stored.
func UserEmailCacheSet(userID uint, email string) {
	userCacheMu.RLock()
	c, capacity := userCache, userCacheCap
	userCacheMu.RUnlock()
	if c == nil {
		return
	}
	key := userCacheKey(userID)
	if _, ok := c.Get(key); !ok && c.ItemCount() >= capacity {
		c.DeleteExpired()
		if c.ItemCount() >= capacity {
			return
		}
	}
	c.Set(key, email, cache.DefaultExpiration)
}

// InvalidateUserEmail drops a cached entry, e.g. after a profile change.
func InvalidateUserEmail(userID uint) {
	userCacheMu.RLock()
	c := userCache
	userCacheMu.RUnlock()
	if c != nil {
		c.Delete(userCacheKey(userID))
	}
}

// GetUserEmail returns the email for userID using cache, falling back to DB.
func GetUserEmail(db *gorm.DB, userID uint) string {
	if userID == 0 {
		return ""
	}
	if email, ok := UserEmailCacheGet(userID); ok {
		return email
	}
	if db == nil {
		return ""
	}
	var u struct{ Email string }
	if err := db.Table("users").Select("email").Where("id = ? AND deleted_at IS NULL", userID).Take(&u).Error; err != nil {
		return ""
	}
	if u.Email != "" {
		UserEmailCacheSet(userID, u.Email)
	}
	return u.Email
}
