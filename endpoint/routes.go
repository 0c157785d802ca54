package endpoint

import (
	"net/http"

	"github.com/ariebrainware/rhinitis-care/middleware"
	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts every route on r. The DB middleware must already
// be installed.
func RegisterRoutes(r gin.IRouter, h *Handlers, appName string) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to " + appName + "!"})
	})

	r.POST("/signup", Signup)
	r.POST("/login", middleware.RateLimiter(middleware.RateLimitConfig{}), Login)
	r.GET("/token/validate", ValidateToken)

	auth := r.Group("/")
	auth.Use(middleware.ValidateLoginToken())
	{
		auth.DELETE("/logout", Logout)

		patient := auth.Group("/assessment")
		patient.Use(middleware.RequireRole(model.RolePatient))
		{
			patient.POST("", h.SubmitAssessment)
			patient.GET("", h.ListAssessments)
			patient.GET("/eligibility", h.AssessmentEligibility)
		}

		doctor := auth.Group("/doctor")
		doctor.Use(middleware.RequireDoctor())
		{
			doctor.GET("/patients", h.ListPatients)
			doctor.GET("/patients/:id", h.GetPatient)
			doctor.GET("/patients/:id/report", h.PatientReport)
		}
	}
}
