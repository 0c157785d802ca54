package assessment

import (
	"fmt"
	"testing"
	"time"

	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:assessment_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, model.Migrate(db))
	return db
}

func createPatient(t *testing.T, db *gorm.DB, name, phone string) model.User {
	t.Helper()
	user := model.User{Name: name, Email: fmt.Sprintf("%s@example.com", name), Password: "x", RoleID: model.RolePatient}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&model.PatientProfile{UserID: user.ID, Email: user.Email, Phone: phone}).Error)
	return user
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
