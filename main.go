// main.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ariebrainware/rhinitis-care/assessment"
	"github.com/ariebrainware/rhinitis-care/config"
	"github.com/ariebrainware/rhinitis-care/endpoint"
	"github.com/ariebrainware/rhinitis-care/middleware"
	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/ariebrainware/rhinitis-care/util"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rhinitis-care",
	Short: "Allergic rhinitis symptom intake and follow-up service",
	Long: `rhinitis-care scores patient symptom intakes, recommends treatment
by escalation stage and keeps the per-patient follow-up history.
Without a subcommand it starts the HTTP server.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and seed roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadConfig()
		db, err := config.ConnectMySQL()
		if err != nil {
			return fmt.Errorf("connecting to MySQL: %w", err)
		}
		if err := model.Migrate(db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load the configuration
	cfg := config.LoadConfig()

	db, err := config.ConnectMySQL()
	if err != nil {
		return fmt.Errorf("connecting to MySQL: %w", err)
	}
	if err := model.Migrate(db); err != nil {
		return err
	}

	util.SetJWTSecret(os.Getenv("JWTSECRET"))
	util.SetSecurityLoggerDB(db)
	util.InitUserEmailCache(cfg.UserEmailCacheSize)
	if err := util.InitGeoIP(cfg.GeoIPDBPath); err != nil {
		log.Printf("GeoIP disabled: %v", err)
	}
	defer util.CloseGeoIP()
	endpoint.SetDoctorSignupCode(cfg.DoctorSignupCode)

	var locker assessment.Locker
	rdb, err := config.ConnectRedis()
	if err != nil {
		log.Printf("Redis unavailable, using in-process locks and rate limits: %v", err)
	}
	if rdb != nil {
		locker = assessment.NewRedisLocker(rdb)
	} else {
		locker = assessment.NewLocalLocker()
	}

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.EndpointCallLogger())
	endpoint.RegisterRoutes(router, endpoint.NewHandlers(locker, cfg.ReportFontPath), cfg.AppName)

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		return fmt.Errorf("error starting server: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(evaluateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
