package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/ariebrainware/rhinitis-care/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	dbContextKey       = "db"
	sessionTokenHeader = "session-token"
)

type contextID struct {
	key   string
	label string
}

var (
	userIDContext = contextID{key: "user_id", label: "user ID"}
	roleIDContext = contextID{key: "role_id", label: "role ID"}
)

func setCorsHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE, PATCH")
	h.Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization, session-token")
	h.Set("Access-Control-Max-Age", "86400")
	h.Set("Access-Control-Allow-Credentials", "true")
}

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		setCorsHeaders(c)
		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// DatabaseMiddleware stores db in the request context.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbContextKey, db)
		c.Next()
	}
}

// GetDB returns the request's DB, or nil when DatabaseMiddleware did not run.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbContextKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}

// GetUserID returns the authenticated user's ID.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDContext.key)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// GetRoleID returns the authenticated user's role.
func GetRoleID(c *gin.Context) (uint32, bool) {
	v, ok := c.Get(roleIDContext.key)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint32)
	return id, ok && id != 0
}

func setIdentity(c *gin.Context, userID uint, roleID uint32) {
	c.Set(userIDContext.key, userID)
	c.Set(roleIDContext.key, roleID)
}

// ValidateLoginToken authenticates the session-token header. Redis is
// consulted first; a miss or an unreadable entry falls back to the
// sessions table joined with users.
func ValidateLoginToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(sessionTokenHeader)
		if token == "" {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Session token not provided",
				Err: fmt.Errorf("missing %s header", sessionTokenHeader),
			})
			c.Abort()
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database connection not available",
				Err: fmt.Errorf("db is nil"),
			})
			c.Abort()
			return
		}

		userID, roleID, err := util.LookupCachedSession(c.Request.Context(), token)
		if err == nil && userID != 0 {
			setIdentity(c, userID, roleID)
			c.Next()
			return
		}

		var row struct {
			UserID uint
			RoleID uint32
		}
		err = db.Table("sessions").
			Select("sessions.user_id AS user_id, users.role_id AS role_id").
			Joins("JOIN users ON users.id = sessions.user_id AND users.deleted_at IS NULL").
			Where("sessions.session_token = ? AND sessions.expires_at > ? AND sessions.deleted_at IS NULL", token, time.Now()).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.LogUnauthorizedAccess("", "", c.ClientIP(), c.Request.URL.Path, "invalid or expired session")
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Invalid or expired session",
				Err: err,
			})
			c.Abort()
			return
		}
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to validate session", Err: err})
			c.Abort()
			return
		}

		setIdentity(c, row.UserID, row.RoleID)
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles. It must
// run after ValidateLoginToken.
func RequireRole(roles ...uint32) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleID, ok := GetRoleID(c)
		if ok {
			for _, r := range roles {
				if r == roleID {
					c.Next()
					return
				}
			}
		}
		userID, _ := GetUserID(c)
		util.LogUnauthorizedAccess(fmt.Sprintf("%d", userID), "", c.ClientIP(), c.Request.URL.Path, fmt.Sprintf("role %d not permitted", roleID))
		util.CallForbidden(c, util.APIErrorParams{
			Msg: "You do not have access to this resource",
			Err: fmt.Errorf("role %d not permitted", roleID),
		})
		c.Abort()
	}
}

// RequireDoctor is RequireRole for doctors and admins.
func RequireDoctor() gin.HandlerFunc {
	return RequireRole(model.RoleDoctor, model.RoleAdmin)
}
