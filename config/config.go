package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`
	DBHost  string `json:"dbhost"`
	DBPort  uint16 `json:"dbport"`
	DBName  string `json:"dbname"`
	DBUSER  string `json:"dbuser"`
	DBPass  string `json:"dbpass"`

	// DoctorSignupCode must be supplied to register a doctor account.
	DoctorSignupCode string `json:"-"`
	GeoIPDBPath      string `json:"geoip_db_path"`
	ReportFontPath   string `json:"report_font_path"`
	// UserEmailCacheSize caps the request logger's email cache; 0 uses the default.
	UserEmailCacheSize int `json:"user_email_cache_size"`
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
// A missing .env file is not fatal; the process environment is used as is.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded: %v", err)
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)
		emailCacheSize, _ := strconv.Atoi(os.Getenv("USER_EMAIL_CACHE_SIZE"))
		if appPort == 0 {
			appPort = 10000
		}
		if dbPort == 0 {
			dbPort = 3306
		}

		config = &Config{
			AppName:          getEnv("APPNAME", "rhinitis-care"),
			AppEnv:           os.Getenv("APPENV"),
			AppPort:          uint16(appPort),
			GinMode:          getEnv("GINMODE", "release"),
			DBHost:           getEnv("DBHOST", "localhost"),
			DBPort:           uint16(dbPort),
			DBName:           os.Getenv("DBNAME"),
			DBUSER:           os.Getenv("DBUSER"),
			DBPass:           os.Getenv("DBPASS"),
			DoctorSignupCode: os.Getenv("DOCTOR_SIGNUP_CODE"),
			GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
			ReportFontPath:   os.Getenv("REPORT_FONT_PATH"),

			UserEmailCacheSize: emailCacheSize,
		}
	})
	return config
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// IsTestEnv reports whether APPENV is "test". It reads the environment on
// every call so tests can switch it with t.Setenv.
func IsTestEnv() bool {
	return os.Getenv("APPENV") == "test"
}

// gormConfig turns on error translation so unique-key violations surface
// as gorm.ErrDuplicatedKey on every driver.
func gormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

// ConnectMySQL establishes a connection to a MySQL database using the configuration values.
// With APPENV=test it opens a private in-memory SQLite database instead.
func ConnectMySQL() (*gorm.DB, error) {
	if IsTestEnv() {
		return ConnectSQLite(fmt.Sprintf("file:rhinitis_%d?mode=memory&cache=shared", nextMemoryDB()))
	}

	cfg := LoadConfig()
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DBUSER, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	return db, nil
}

// ConnectSQLite opens a SQLite database at dsn.
func ConnectSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	// A single connection keeps shared-cache memory databases consistent
	// and serializes writers the way SQLite expects.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

var (
	memoryDBMu  sync.Mutex
	memoryDBSeq int
)

func nextMemoryDB() int {
	memoryDBMu.Lock()
	defer memoryDBMu.Unlock()
	memoryDBSeq++
	return memoryDBSeq
}
