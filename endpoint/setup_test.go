package endpoint_test

import (
	"os"
	"testing"

	"github.com/ariebrainware/rhinitis-care/config"
	"github.com/ariebrainware/rhinitis-care/endpoint"
	"github.com/ariebrainware/rhinitis-care/util"
	"github.com/gin-gonic/gin"
)

const testDoctorCode = "doctor-code-123"

// TestMain sets up consistent test configuration for all tests in the endpoint_test package.
func TestMain(m *testing.M) {
	os.Setenv("APPENV", "test")
	os.Setenv("JWTSECRET", "test-secret-123")
	os.Setenv("GINMODE", "test")

	util.SetJWTSecret("test-secret-123")
	util.InitUserEmailCache(100)
	endpoint.SetDoctorSignupCode(testDoctorCode)
	config.ResetRedisClientForTest()

	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}
