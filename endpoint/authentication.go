package endpoint

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/ariebrainware/rhinitis-care/util"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

const (
	sessionDuration  = time.Hour
	maxLoginFailures = 5
	lockoutDuration  = 15 * time.Minute
)

var (
	signupMu         sync.RWMutex
	doctorSignupCode string
)

// SetDoctorSignupCode sets the code a doctor must present at signup. An
// empty code disables doctor signup.
func SetDoctorSignupCode(code string) {
	signupMu.Lock()
	defer signupMu.Unlock()
	doctorSignupCode = code
}

func doctorCodeMatches(code string) bool {
	signupMu.RLock()
	defer signupMu.RUnlock()
	return doctorSignupCode != "" && subtle.ConstantTimeCompare([]byte(code), []byte(doctorSignupCode)) == 1
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

type LoginResponse struct {
	Token  string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Role   string `json:"role" example:"Patient"`
	UserID uint   `json:"user_id" example:"1"`
}

type loginContext struct {
	C     *gin.Context
	DB    *gorm.DB
	Email string
	CI    clientInfo
}

// Login godoc
// @Summary      User login
// @Description  Authenticate a patient or doctor with email and password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid credentials or account locked"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /login [post]
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ctx := loginContext{C: c, DB: db, Email: strings.ToLower(strings.TrimSpace(req.Email)), CI: clientInfoOf(c)}

	user, ok := loadUserForLogin(ctx)
	if !ok {
		return
	}
	if !ensureAccountNotLocked(ctx, &user) {
		return
	}
	if !verifyPasswordOrRespond(ctx, &user, req.Password) {
		return
	}
	finalizeLogin(ctx, &user)
}

func loadUserForLogin(ctx loginContext) (model.User, bool) {
	user, err := loadUserByEmail(ctx.DB, ctx.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "user not found")
		util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("user not found")})
		return model.User{}, false
	}
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "database error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Database error", Err: err})
		return model.User{}, false
	}
	return user, true
}

func ensureAccountNotLocked(ctx loginContext, user *model.User) bool {
	if locked, expiry := isAccountLocked(user); locked {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "account locked")
		util.CallUserError(ctx.C, util.APIErrorParams{
			Msg: fmt.Sprintf("Account is locked until %s due to multiple failed login attempts", expiry.Format(time.RFC3339)),
			Err: fmt.Errorf("account locked"),
		})
		return false
	}
	return true
}

func verifyPasswordOrRespond(ctx loginContext, user *model.User, plain string) bool {
	match, err := util.VerifyPassword(plain, user.Password, user.PasswordSalt)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "password verification error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return false
	}
	if !match {
		incrementFailedAttempts(ctx.DB, user, ctx.CI)
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "invalid password")
		util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("invalid password")})
		return false
	}
	return true
}

func finalizeLogin(ctx loginContext, user *model.User) {
	if err := resetFailedAttempts(ctx.DB, user); err != nil {
		util.LogSecurityEvent(util.SecurityEvent{EventType: util.EventSuspiciousActivity, UserID: fmt.Sprintf("%d", user.ID), Email: user.Email, IP: ctx.CI.IP, Message: fmt.Sprintf("Failed to reset failed attempts: %v", err)})
	}

	role, err := fetchRole(ctx.DB, user.RoleID)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "role not found")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Role not found", Err: err})
		return
	}

	expires := time.Now().Add(sessionDuration)
	tokenString, err := createJWTToken(*user, expires)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "token generation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return
	}

	session := model.Session{UserID: user.ID, SessionToken: tokenString, ExpiresAt: expires, ClientIP: ctx.CI.IP, Browser: ctx.CI.Agent}
	if err := ctx.DB.Create(&session).Error; err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "session creation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Failed to record session", Err: err})
		return
	}

	// Redis is a cache in front of the sessions table, failures are not fatal
	if err := util.CacheSession(ctx.C.Request.Context(), tokenString, user.ID, user.RoleID, time.Until(expires)); err != nil {
		util.LogSecurityEvent(util.SecurityEvent{EventType: util.EventSuspiciousActivity, UserID: fmt.Sprintf("%d", user.ID), IP: ctx.CI.IP, Message: fmt.Sprintf("Failed to cache session: %v", err)})
	}

	util.LogLoginSuccess(user.ID, user.Email, ctx.CI.IP, ctx.CI.Agent)
	util.CallSuccessOK(ctx.C, util.APISuccessParams{Msg: "Login successful", Data: LoginResponse{Token: tokenString, Role: role.Name, UserID: user.ID}})
}

func loadUserByEmail(db *gorm.DB, email string) (model.User, error) {
	var user model.User
	err := db.Where("email = ?", email).First(&user).Error
	return user, err
}

func isAccountLocked(user *model.User) (bool, time.Time) {
	if user.LockedUntil != nil && *user.LockedUntil > time.Now().Unix() {
		return true, time.Unix(*user.LockedUntil, 0)
	}
	return false, time.Time{}
}

func incrementFailedAttempts(db *gorm.DB, user *model.User, ci clientInfo) {
	user.FailedAttempts++
	if user.FailedAttempts >= maxLoginFailures {
		lockUntil := time.Now().Add(lockoutDuration).Unix()
		user.LockedUntil = &lockUntil
		util.LogAccountLocked(user.ID, user.Email, ci.IP, "too many failed login attempts")
	}
	if err := db.Model(user).Select("failed_attempts", "locked_until").Updates(user).Error; err != nil {
		util.LogLoginFailure(user.Email, ci.IP, ci.Agent, "failed to update failed attempts")
	}
}

func resetFailedAttempts(db *gorm.DB, user *model.User) error {
	if user.FailedAttempts == 0 && user.LockedUntil == nil {
		return nil
	}
	user.FailedAttempts = 0
	user.LockedUntil = nil
	return db.Model(user).Select("failed_attempts", "locked_until").Updates(user).Error
}

func fetchRole(db *gorm.DB, roleID uint32) (model.Role, error) {
	var role model.Role
	err := db.Where("id = ?", roleID).First(&role).Error
	return role, err
}

func createJWTToken(user model.User, expires time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", user.ID),
		"role": user.RoleID,
		"exp":  expires.Unix(),
		"iat":  time.Now().Unix(),
		// jti keeps two logins within the same second distinct
		"jti": fmt.Sprintf("%d-%d", user.ID, time.Now().UnixNano()),
	})
	return token.SignedString(util.GetJWTSecretByte())
}

// Logout godoc
// @Summary      User logout
// @Description  Invalidate the session token
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /logout [delete]
func Logout(c *gin.Context) {
	sessionToken := c.GetHeader("session-token")
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if err := db.Where("session_token = ? AND user_id = ?", sessionToken, userID).Delete(&model.Session{}).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete session", Err: err})
		return
	}
	_ = util.DropCachedSession(c.Request.Context(), userID, sessionToken)

	util.LogLogout(userID, util.GetUserEmail(db, userID), c.ClientIP(), c.Request.UserAgent())
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Logout successful"})
}

// PatientProfileInput is the contact block of a patient signup.
type PatientProfileInput struct {
	Phone             string `json:"phone" example:"0812345678"`
	Address           string `json:"address"`
	DateOfBirth       string `json:"dob" binding:"omitempty,datetime=2006-01-02" example:"1990-05-01"`
	Gender            string `json:"gender" binding:"omitempty,oneof=male female other" example:"female"`
	EmergencyContact  string `json:"emergency_contact"`
	InsuranceProvider string `json:"insurance_provider"`
	HospitalNumber    string `json:"hospital_number"`
}

// PatientHistoryInput is the symptom background of a patient signup.
type PatientHistoryInput struct {
	SymptomWorseMorning  bool   `json:"symptom_worse_morning"`
	SymptomWorseExercise bool   `json:"symptom_worse_exercise"`
	SymptomWorseDust     bool   `json:"symptom_worse_dust"`
	SymptomWorseOther    string `json:"symptom_worse_other"`
	SeasonSummer         bool   `json:"season_summer"`
	SeasonRainy          bool   `json:"season_rainy"`
	SeasonWinter         bool   `json:"season_winter"`
	SeasonAllYear        bool   `json:"season_all_year"`
	SeasonChange         bool   `json:"season_change"`
	DurationPerYear      string `json:"duration_per_year"`
	WeeklyFrequency      string `json:"weekly_frequency"`
	TimeOfDay            string `json:"time_of_day"`
	LivingArea           string `json:"living_area"`
	NearRoad             bool   `json:"near_road"`
	HousingType          string `json:"housing_type"`
	AirConditioner       bool   `json:"air_conditioner"`
	Pet                  string `json:"pet"`
}

type SignupRequest struct {
	Name       string               `json:"name" binding:"required" example:"Malee Jaidee"`
	Email      string               `json:"email" binding:"required,email" example:"malee@example.com"`
	Password   string               `json:"password" binding:"required,min=8" example:"password123"`
	Role       string               `json:"role" binding:"omitempty,oneof=patient doctor" example:"patient"`
	DoctorCode string               `json:"doctor_code,omitempty"`
	Profile    *PatientProfileInput `json:"profile,omitempty"`
	History    *PatientHistoryInput `json:"history,omitempty"`
}

// Signup godoc
// @Summary      User signup
// @Description  Register a patient (with profile and symptom background) or, with the doctor code, a doctor
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup details"
// @Success      200 {object} util.APIResponse{data=string} "Signup successful"
// @Failure      400 {object} util.APIResponse "Invalid request or email already exists"
// @Failure      403 {object} util.APIResponse "Invalid doctor code"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /signup [post]
func Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	roleID := model.RolePatient
	if req.Role == "doctor" {
		if !doctorCodeMatches(req.DoctorCode) {
			util.LogUnauthorizedAccess("", req.Email, c.ClientIP(), "/signup", "invalid doctor code")
			util.CallForbidden(c, util.APIErrorParams{Msg: "Invalid doctor code", Err: fmt.Errorf("doctor code mismatch")})
			return
		}
		roleID = model.RoleDoctor
	}

	salt, err := util.GenerateSalt()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate password salt", Err: err})
		return
	}
	hashed, err := util.HashPasswordArgon2(req.Password, salt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return
	}

	user := model.User{
		Name:         util.NormalizeName(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Password:     hashed,
		PasswordSalt: salt,
		RoleID:       roleID,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if roleID != model.RolePatient {
			return nil
		}
		profile := newPatientProfile(user, req.Profile)
		if profile.HospitalNumber == "" {
			code, err := model.NextHospitalNumber(tx, user.Name)
			if err != nil {
				return err
			}
			profile.HospitalNumber = code
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		return tx.Create(newPatientHistory(user.ID, req.History)).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: fmt.Errorf("email already exists")})
		return
	}
	if errors.Is(err, model.ErrPatientCodeContention) {
		util.CallConflict(c, util.APIErrorParams{Msg: "Signup collided with another registration, please retry", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create new user", Err: err})
		return
	}

	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventSignupSuccess,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   fmt.Sprintf("User signed up successfully as role %d", roleID),
	})

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Signup successful",
		Data: map[string]interface{}{"user_id": user.ID, "role_id": roleID},
	})
}

func newPatientProfile(user model.User, in *PatientProfileInput) *model.PatientProfile {
	p := &model.PatientProfile{UserID: user.ID, Email: user.Email}
	if in == nil {
		return p
	}
	p.Phone = strings.TrimSpace(in.Phone)
	p.Address = in.Address
	p.DateOfBirth = in.DateOfBirth
	p.Gender = in.Gender
	p.EmergencyContact = in.EmergencyContact
	p.InsuranceProvider = in.InsuranceProvider
	p.HospitalNumber = strings.TrimSpace(in.HospitalNumber)
	return p
}

func newPatientHistory(userID uint, in *PatientHistoryInput) *model.PatientHistory {
	h := &model.PatientHistory{UserID: userID}
	if in == nil {
		return h
	}
	h.SymptomWorseMorning = in.SymptomWorseMorning
	h.SymptomWorseExercise = in.SymptomWorseExercise
	h.SymptomWorseDust = in.SymptomWorseDust
	h.SymptomWorseOther = in.SymptomWorseOther
	h.SeasonSummer = in.SeasonSummer
	h.SeasonRainy = in.SeasonRainy
	h.SeasonWinter = in.SeasonWinter
	h.SeasonAllYear = in.SeasonAllYear
	h.SeasonChange = in.SeasonChange
	h.DurationPerYear = in.DurationPerYear
	h.WeeklyFrequency = in.WeeklyFrequency
	h.TimeOfDay = in.TimeOfDay
	h.LivingArea = in.LivingArea
	h.NearRoad = in.NearRoad
	h.HousingType = in.HousingType
	h.AirConditioner = in.AirConditioner
	h.Pet = in.Pet
	return h
}
