package util

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"
	cache "github.com/patrickmn/go-cache"
)

var (
	geoipMu        sync.RWMutex
	geoipDB        *geoip2.Reader
	geoipCache     = cache.New(24*time.Hour, time.Hour)
	geoipCacheHits int64
	geoipCacheMiss int64
)

// InitGeoIP opens the GeoLite2 city database at dbPath. An empty path
// leaves lookups disabled; audit entries then carry no location.
func InitGeoIP(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoipMu.Lock()
	old := geoipDB
	geoipDB = r
	geoipMu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	geoipCache.Flush()
	return nil
}

// CloseGeoIP closes the GeoIP DB if opened.
func CloseGeoIP() {
	geoipMu.Lock()
	defer geoipMu.Unlock()
	if geoipDB != nil {
		_ = geoipDB.Close()
		geoipDB = nil
	}
}

func isLocalAddress(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

type ipLocation struct {
	city    string
	country string
}

// GetIPLocation returns the English city and country names for ip.
// Private, loopback and unparsable addresses resolve to empty strings.
func GetIPLocation(ip string) (string, string) {
	parsed := net.ParseIP(ip)
	if parsed == nil || isLocalAddress(parsed) {
		return "", ""
	}

	if v, ok := geoipCache.Get(ip); ok {
		atomic.AddInt64(&geoipCacheHits, 1)
		loc := v.(ipLocation)
		return loc.city, loc.country
	}
	atomic.AddInt64(&geoipCacheMiss, 1)

	geoipMu.RLock()
	reader := geoipDB
	geoipMu.RUnlock()
	if reader == nil {
		return "", ""
	}

	rec, err := reader.City(parsed)
	if err != nil {
		return "", ""
	}
	loc := ipLocation{city: rec.City.Names["en"], country: rec.Country.Names["en"]}
	if loc.country == "" {
		loc.country = rec.Country.IsoCode
	}
	geoipCache.Set(ip, loc, cache.DefaultExpiration)
	return loc.city, loc.country
}

// GetGeoIPCacheMetrics returns the cache hits and misses and current cache size.
func GetGeoIPCacheMetrics() (hits int64, misses int64, size int) {
	return atomic.LoadInt64(&geoipCacheHits), atomic.LoadInt64(&geoipCacheMiss), geoipCache.ItemCount()
}
