package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nutrirec/nutrirec/internal/config"
	"github.com/nutrirec/nutrirec/internal/domain/assessment"
	"github.com/nutrirec/nutrirec/internal/domain/client"
	"github.com/nutrirec/nutrirec/internal/domain/followup"
	"github.com/nutrirec/nutrirec/internal/domain/mealplan"
	"github.com/nutrirec/nutrirec/internal/domain/measurement"
	"github.com/nutrirec/nutrirec/internal/domain/report"
	"github.com/nutrirec/nutrirec/internal/platform/auth"
	"github.com/nutrirec/nutrirec/internal/platform/db"
	"github.com/nutrirec/nutrirec/internal/platform/jobs"
	"github.com/nutrirec/nutrirec/internal/platform/middleware"
	"github.com/nutrirec/nutrirec/internal/platform/stats"
)

// historyPullLimit bounds how many measurements the cross-domain adapters
// pull per client. A weekly visitor takes two decades to hit it.
const historyPullLimit = 1000

// clientPageSize is the page size used when the follow-up scan walks the
// whole client roster.
const clientPageSize = 500

// The adapters below wire domain services into each other's source
// interfaces. Domains never import one another; all coupling lives here.

// clientDirectory adapts the client service to the measurement and meal
// plan ClientDirectory interfaces.
type clientDirectory struct {
	svc *client.Service
}

func (a *clientDirectory) ClientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := a.svc.GetClient(ctx, id); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *clientDirectory) RecordVisit(ctx context.Context, id uuid.UUID) error {
	return a.svc.RecordVisit(ctx, id)
}

// assessmentProfiles adapts the client service to assessment.ProfileSource.
type assessmentProfiles struct {
	svc *client.Service
}

func (a *assessmentProfiles) Profile(ctx context.Context, clientID uuid.UUID) (*assessment.Profile, error) {
	c, err := a.svc.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, assessment.ErrClientNotFound
		}
		return nil, err
	}
	return &assessment.Profile{
		ClientID:       c.ID,
		Age:            c.Age,
		Sex:            c.Sex,
		Goal:           assessment.Goal(c.Goal),
		TargetWeightKg: c.TargetWeightKg,
		ActivityLevel:  c.ActivityLevel,
	}, nil
}

// assessmentSamples adapts the measurement service to assessment.SampleSource.
type assessmentSamples struct {
	svc *measurement.Service
}

func (a *assessmentSamples) Samples(ctx context.Context, clientID uuid.UUID) ([]assessment.Sample, error) {
	rows, _, err := a.svc.History(ctx, clientID, nil, historyPullLimit, 0)
	if err != nil {
		if errors.Is(err, measurement.ErrClientNotFound) {
			return nil, assessment.ErrClientNotFound
		}
		return nil, err
	}
	samples := make([]assessment.Sample, len(rows))
	for i, m := range rows {
		samples[i] = assessment.Sample{TakenAt: m.TakenAt, HeightCm: m.HeightCm, WeightKg: m.WeightKg}
	}
	return samples, nil
}

// followupClients adapts the client service to followup.ClientSource.
type followupClients struct {
	svc *client.Service
}

func (a *followupClients) ClientInfo(ctx context.Context, id uuid.UUID) (*followup.ClientInfo, error) {
	c, err := a.svc.GetClient(ctx, id)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, followup.ErrClientNotFound
		}
		return nil, err
	}
	return &followup.ClientInfo{
		ClientID:    c.ID,
		PharmacyID:  c.PharmacyID,
		FullName:    c.FullName,
		CadenceDays: c.CadenceDays,
		CreatedAt:   c.CreatedAt,
	}, nil
}

func (a *followupClients) ActiveClients(ctx context.Context) ([]followup.ClientInfo, error) {
	var out []followup.ClientInfo
	for offset := 0; ; offset += clientPageSize {
		page, total, err := a.svc.ListClients(ctx, clientPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, c := range page {
			out = append(out, followup.ClientInfo{
				ClientID:    c.ID,
				PharmacyID:  c.PharmacyID,
				FullName:    c.FullName,
				CadenceDays: c.CadenceDays,
				CreatedAt:   c.CreatedAt,
			})
		}
		if len(page) == 0 || offset+len(page) >= total {
			break
		}
	}
	return out, nil
}

// followupEvents adapts the measurement service to followup.LastEventSource.
type followupEvents struct {
	svc *measurement.Service
}

func (a *followupEvents) LastMeasuredAt(ctx context.Context, clientID uuid.UUID) (time.Time, bool, error) {
	m, err := a.svc.Latest(ctx, clientID)
	if err != nil {
		if errors.Is(err, measurement.ErrNotFound) || errors.Is(err, measurement.ErrClientNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return m.TakenAt, true, nil
}

// reportClients adapts the client service to report.ClientSource.
type reportClients struct {
	svc *client.Service
}

func (a *reportClients) Record(ctx context.Context, clientID uuid.UUID) (*report.ClientRecord, error) {
	c, err := a.svc.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, report.ErrClientNotFound
		}
		return nil, err
	}
	return &report.ClientRecord{
		ClientID:         c.ID,
		PharmacyID:       c.PharmacyID,
		FullName:         c.FullName,
		Age:              c.Age,
		Sex:              c.Sex,
		Phone:            stringVal(c.Phone),
		Language:         c.Language,
		HealthConditions: stringVal(c.HealthConditions),
		Goal:             c.Goal,
		TargetWeightKg:   c.TargetWeightKg,
		VisitCount:       c.VisitCount,
		RegisteredAt:     c.CreatedAt,
	}, nil
}

// reportAssessor adapts the assessment service to report.Assessor.
type reportAssessor struct {
	svc *assessment.Service
}

func (a *reportAssessor) Assess(ctx context.Context, clientID uuid.UUID) (*assessment.Assessment, error) {
	out, err := a.svc.Assess(ctx, clientID)
	if err != nil {
		if errors.Is(err, assessment.ErrClientNotFound) {
			return nil, report.ErrClientNotFound
		}
		return nil, err
	}
	return out, nil
}

// reportMeasurements adapts the measurement service to report.MeasurementSource.
type reportMeasurements struct {
	svc *measurement.Service
}

func (a *reportMeasurements) History(ctx context.Context, clientID uuid.UUID) ([]report.MeasurementRow, error) {
	rows, _, err := a.svc.History(ctx, clientID, nil, historyPullLimit, 0)
	if err != nil {
		if errors.Is(err, measurement.ErrClientNotFound) {
			return nil, report.ErrClientNotFound
		}
		return nil, err
	}
	out := make([]report.MeasurementRow, len(rows))
	for i, m := range rows {
		out[i] = report.MeasurementRow{
			TakenAt:    m.TakenAt,
			HeightCm:   m.HeightCm,
			WeightKg:   m.WeightKg,
			BMI:        m.BMI,
			BodyFatPct: m.BodyFatPct,
			MusclePct:  m.MusclePct,
		}
	}
	return out, nil
}

// reportPlans adapts the meal plan service to report.PlanSource.
type reportPlans struct {
	svc *mealplan.Service
}

func (a *reportPlans) RecentPlans(ctx context.Context, clientID uuid.UUID, days int) ([]report.PlanDay, error) {
	plans, err := a.svc.ListRecent(ctx, clientID, days)
	if err != nil {
		if errors.Is(err, mealplan.ErrClientNotFound) {
			return nil, report.ErrClientNotFound
		}
		return nil, err
	}
	out := make([]report.PlanDay, len(plans))
	for i, p := range plans {
		out[i] = report.PlanDay{
			Date:            p.PlanDate,
			Breakfast:       stringVal(p.Breakfast),
			MorningSnack:    stringVal(p.MorningSnack),
			Lunch:           stringVal(p.Lunch),
			AfternoonSnack:  stringVal(p.AfternoonSnack),
			Dinner:          stringVal(p.Dinner),
			EveningSnack:    stringVal(p.EveningSnack),
			WaterLiters:     p.WaterLiters,
			ComplianceScore: p.ComplianceScore,
		}
	}
	return out, nil
}

func (a *reportPlans) ComplianceRate(ctx context.Context, clientID uuid.UUID, days int) (float64, int, error) {
	sum, err := a.svc.ComplianceRate(ctx, clientID, days)
	if err != nil {
		if errors.Is(err, mealplan.ErrClientNotFound) {
			return 0, 0, report.ErrClientNotFound
		}
		return 0, 0, err
	}
	return sum.Percent, sum.Scored, nil
}

// reportFollowups adapts the follow-up service to report.FollowUpSource.
type reportFollowups struct {
	svc *followup.Service
}

func (a *reportFollowups) ForClient(ctx context.Context, clientID uuid.UUID, today time.Time) (*report.FollowUpInfo, error) {
	f, err := a.svc.ForClient(ctx, clientID, today)
	if err != nil {
		if errors.Is(err, followup.ErrClientNotFound) {
			return nil, report.ErrClientNotFound
		}
		return nil, err
	}
	return &report.FollowUpInfo{
		DueDate:   f.DueDate,
		Status:    string(f.Status),
		DaysUntil: f.DaysUntil,
	}, nil
}

// reportNotes adapts the client service to report.NoteSource.
type reportNotes struct {
	svc *client.Service
}

func (a *reportNotes) RecentNotes(ctx context.Context, clientID uuid.UUID, limit int) ([]report.NoteEntry, error) {
	notes, _, err := a.svc.ListNotes(ctx, clientID, limit, 0)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, report.ErrClientNotFound
		}
		return nil, err
	}
	out := make([]report.NoteEntry, len(notes))
	for i, n := range notes {
		out[i] = report.NoteEntry{AuthorName: n.AuthorName, Body: n.Body, CreatedAt: n.CreatedAt}
	}
	return out, nil
}

func stringVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "nutrirec-server",
		Short: "Nutrition clinic record API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(followupsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Apply a corrective forward migration instead.")
			return nil
		},
	})

	return cmd
}

func followupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "followups",
		Short: "Follow-up schedule tools",
	}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "List clients due or overdue for follow-up",
		RunE: func(cmd *cobra.Command, args []string) error {
			todayFlag, _ := cmd.Flags().GetString("today")
			today := time.Now()
			if todayFlag != "" {
				var err error
				today, err = time.Parse("2006-01-02", todayFlag)
				if err != nil {
					return fmt.Errorf("invalid --today value %q, want YYYY-MM-DD", todayFlag)
				}
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			followSvc := buildFollowUpService(cfg, pool)
			due, err := followSvc.ListDue(ctx, today)
			if err != nil {
				return err
			}

			if len(due) == 0 {
				fmt.Println("Nobody is due for follow-up.")
				return nil
			}
			fmt.Printf("%-10s %-30s %-12s %-10s %s\n", "PHARMACY", "NAME", "DUE DATE", "STATUS", "DAYS")
			for _, f := range due {
				fmt.Printf("%-10s %-30s %-12s %-10s %+d\n",
					f.PharmacyID, f.FullName, f.DueDate.Format("2006-01-02"), f.Status, f.DaysUntil)
			}
			return nil
		},
	}
	scanCmd.Flags().String("today", "", "Reference day (YYYY-MM-DD), defaults to now")
	cmd.AddCommand(scanCmd)

	return cmd
}

// buildFollowUpService assembles the minimal service graph the scan command
// needs.
func buildFollowUpService(cfg *config.Config, pool *pgxpool.Pool) *followup.Service {
	clientSvc := client.NewService(client.NewClientRepoPG(pool), client.NewNoteRepoPG(pool), client.Options{
		IDStrategy: cfg.PharmacyIDStrategy,
		AgeMin:     cfg.AgeMin,
		AgeMax:     cfg.AgeMax,
	})
	measSvc := measurement.NewService(measurement.NewRepoPG(pool), &clientDirectory{svc: clientSvc})
	return followup.NewService(&followupClients{svc: clientSvc}, &followupEvents{svc: measSvc}, followup.Options{
		DefaultCadenceDays: cfg.FollowUpCadenceDays,
		WarningWindowDays:  cfg.FollowUpWarningDays,
	})
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.ResolvedAuthMode() == "development" {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.JWTSecret),
			Skipper:    auth.AuthSkipper,
		}))
	}

	// The access trail runs after auth so entries carry the user.
	e.Use(middleware.Audit(logger))

	// Health checks stay outside the API group so they skip the
	// per-request database session.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API group
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RequestTimeout(30 * time.Second))
	apiV1.Use(middleware.BodyLimit("1M"))
	apiV1.Use(db.SessionMiddleware(pool))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// -- Domain wiring --

	// Clients
	clientRepo := client.NewClientRepoPG(pool)
	noteRepo := client.NewNoteRepoPG(pool)
	clientSvc := client.NewService(clientRepo, noteRepo, client.Options{
		IDStrategy: cfg.PharmacyIDStrategy,
		AgeMin:     cfg.AgeMin,
		AgeMax:     cfg.AgeMax,
	})
	client.NewHandler(clientSvc).RegisterRoutes(apiV1)

	dir := &clientDirectory{svc: clientSvc}

	// Measurements
	measSvc := measurement.NewService(measurement.NewRepoPG(pool), dir)
	measurement.NewHandler(measSvc).RegisterRoutes(apiV1)

	// Meal plans
	planSvc := mealplan.NewService(mealplan.NewRepoPG(pool), dir)
	mealplan.NewHandler(planSvc).RegisterRoutes(apiV1)

	// Assessment
	assessSvc := assessment.NewService(
		&assessmentProfiles{svc: clientSvc},
		&assessmentSamples{svc: measSvc},
		assessment.Options{
			Bands: assessment.Bands{
				UnderweightMax: cfg.BMIUnderweightMax,
				NormalMax:      cfg.BMINormalMax,
				OverweightMax:  cfg.BMIOverweightMax,
				ObeseClass1Max: cfg.BMIObese1Max,
				ObeseClass2Max: cfg.BMIObese2Max,
			},
			StabilityKg: cfg.TrendStabilityKg,
		},
	)
	assessment.NewHandler(assessSvc).RegisterRoutes(apiV1)

	// Follow-ups
	followSvc := followup.NewService(
		&followupClients{svc: clientSvc},
		&followupEvents{svc: measSvc},
		followup.Options{
			DefaultCadenceDays: cfg.FollowUpCadenceDays,
			WarningWindowDays:  cfg.FollowUpWarningDays,
		},
	)
	followup.NewHandler(followSvc).RegisterRoutes(apiV1)

	// Reports
	reportSvc := report.NewService(
		&reportClients{svc: clientSvc},
		&reportAssessor{svc: assessSvc},
		&reportMeasurements{svc: measSvc},
		&reportPlans{svc: planSvc},
		&reportFollowups{svc: followSvc},
		&reportNotes{svc: clientSvc},
		report.Options{
			PlanWindowDays: cfg.ReportMealPlanDays,
			HistoryLimit:   cfg.ReportHistoryLimit,
		},
	)
	report.NewHandler(reportSvc).RegisterRoutes(apiV1)

	// Clinic stats
	stats.NewHandler(pool).RegisterRoutes(apiV1)

	// Daily follow-up scan
	runner := jobs.NewRunner(logger)
	err = runner.Add("followup-scan", cfg.ReminderCron, func(ctx context.Context) error {
		due, err := followSvc.ListDue(ctx, time.Now())
		if err != nil {
			return err
		}
		overdue := 0
		for _, f := range due {
			if f.Status == followup.StatusOverdue {
				overdue++
			}
		}
		logger.Info().Int("due", len(due)).Int("overdue", overdue).Msg("follow-up scan")
		return nil
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule follow-up scan")
	}
	runner.Start()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	runner.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
