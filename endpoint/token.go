package endpoint

import (
	"fmt"
	"time"

	"github.com/ariebrainware/rhinitis-care/util"
	"github.com/gin-gonic/gin"
)

// TokenInfo describes a live session.
type TokenInfo struct {
	UserID    uint      `json:"user_id" example:"7"`
	Role      string    `json:"role" example:"Patient"`
	RoleID    uint32    `json:"role_id" example:"3"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidateToken godoc
// @Summary      Validate session token
// @Description  Validate if the session token is valid and not expired
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=TokenInfo} "Valid session token"
// @Failure      401 {object} util.APIResponse "Invalid or expired session token"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /token/validate [get]
func ValidateToken(c *gin.Context) {
	sessionToken := c.GetHeader("session-token")
	if sessionToken == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid session token", Err: fmt.Errorf("session token not provided")})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var info TokenInfo
	err := db.Table("sessions").
		Select("sessions.user_id AS user_id, roles.name AS role, users.role_id AS role_id, sessions.expires_at AS expires_at").
		Joins("JOIN users ON sessions.user_id = users.id AND users.deleted_at IS NULL").
		Joins("JOIN roles ON users.role_id = roles.id").
		Where("sessions.session_token = ? AND sessions.expires_at > ? AND sessions.deleted_at IS NULL", sessionToken, time.Now()).
		Take(&info).Error
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Session not found", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Valid session token", Data: info})
}
