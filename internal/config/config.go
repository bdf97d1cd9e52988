package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	AuthMode       string   `mapstructure:"AUTH_MODE"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	// Clinical settings. The engine functions never hardcode these; they
	// are threaded through service construction.
	FollowUpCadenceDays int     `mapstructure:"FOLLOWUP_CADENCE_DAYS"`
	FollowUpWarningDays int     `mapstructure:"FOLLOWUP_WARNING_DAYS"`
	TrendStabilityKg    float64 `mapstructure:"TREND_STABILITY_KG"`
	BMIUnderweightMax   float64 `mapstructure:"BMI_UNDERWEIGHT_MAX"`
	BMINormalMax        float64 `mapstructure:"BMI_NORMAL_MAX"`
	BMIOverweightMax    float64 `mapstructure:"BMI_OVERWEIGHT_MAX"`
	BMIObese1Max        float64 `mapstructure:"BMI_OBESE1_MAX"`
	BMIObese2Max        float64 `mapstructure:"BMI_OBESE2_MAX"`
	AgeMin              int     `mapstructure:"AGE_MIN"`
	AgeMax              int     `mapstructure:"AGE_MAX"`
	PharmacyIDStrategy  string  `mapstructure:"PHARMACY_ID_STRATEGY"`
	ReportMealPlanDays  int     `mapstructure:"REPORT_MEALPLAN_DAYS"`
	ReportHistoryLimit  int     `mapstructure:"REPORT_HISTORY_LIMIT"`
	ReminderCron        string  `mapstructure:"REMINDER_CRON"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // auto-detect: "" -> inferred from ENV
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("FOLLOWUP_CADENCE_DAYS", 30)
	v.SetDefault("FOLLOWUP_WARNING_DAYS", 3)
	v.SetDefault("TREND_STABILITY_KG", 0.5)
	v.SetDefault("BMI_UNDERWEIGHT_MAX", 18.5)
	v.SetDefault("BMI_NORMAL_MAX", 25.0)
	v.SetDefault("BMI_OVERWEIGHT_MAX", 30.0)
	v.SetDefault("BMI_OBESE1_MAX", 35.0)
	v.SetDefault("BMI_OBESE2_MAX", 40.0)
	v.SetDefault("AGE_MIN", 0)
	v.SetDefault("AGE_MAX", 120)
	v.SetDefault("PHARMACY_ID_STRATEGY", "sequential")
	v.SetDefault("REPORT_MEALPLAN_DAYS", 7)
	v.SetDefault("REPORT_HISTORY_LIMIT", 10)
	v.SetDefault("REMINDER_CRON", "0 8 * * *")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("AUTH_MODE")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("FOLLOWUP_CADENCE_DAYS")
	v.BindEnv("FOLLOWUP_WARNING_DAYS")
	v.BindEnv("TREND_STABILITY_KG")
	v.BindEnv("BMI_UNDERWEIGHT_MAX")
	v.BindEnv("BMI_NORMAL_MAX")
	v.BindEnv("BMI_OVERWEIGHT_MAX")
	v.BindEnv("BMI_OBESE1_MAX")
	v.BindEnv("BMI_OBESE2_MAX")
	v.BindEnv("AGE_MIN")
	v.BindEnv("AGE_MAX")
	v.BindEnv("PHARMACY_ID_STRATEGY")
	v.BindEnv("REPORT_MEALPLAN_DAYS")
	v.BindEnv("REPORT_HISTORY_LIMIT")
	v.BindEnv("REMINDER_CRON")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active: all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure JWT_SECRET for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns the effective auth mode. If AUTH_MODE is explicitly
// set, it is returned. Otherwise the mode is inferred: development when
// ENV=development, token auth everywhere else.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	return "token"
}

// Validate checks that the configuration is safe to run. Clinical settings
// are checked here so a bad cadence or band layout fails at startup rather
// than silently producing wrong schedules or categories.
func (c *Config) Validate() error {
	mode := c.ResolvedAuthMode()
	if mode != "development" && mode != "token" {
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"token\", got %q", mode)
	}
	if mode == "token" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is \"token\" (current ENV=%q). "+
			"Refusing to start without authentication configuration", c.Env)
	}

	if c.FollowUpCadenceDays <= 0 {
		return fmt.Errorf("FOLLOWUP_CADENCE_DAYS must be positive, got %d", c.FollowUpCadenceDays)
	}
	if c.FollowUpWarningDays < 0 {
		return fmt.Errorf("FOLLOWUP_WARNING_DAYS must not be negative, got %d", c.FollowUpWarningDays)
	}
	if c.TrendStabilityKg <= 0 {
		return fmt.Errorf("TREND_STABILITY_KG must be positive, got %v", c.TrendStabilityKg)
	}

	if c.BMIUnderweightMax <= 0 {
		return fmt.Errorf("BMI_UNDERWEIGHT_MAX must be positive, got %v", c.BMIUnderweightMax)
	}
	ascending := c.BMIUnderweightMax < c.BMINormalMax &&
		c.BMINormalMax < c.BMIOverweightMax &&
		c.BMIOverweightMax < c.BMIObese1Max &&
		c.BMIObese1Max < c.BMIObese2Max
	if !ascending {
		return fmt.Errorf("BMI band boundaries must be strictly ascending")
	}

	if c.AgeMin < 0 || c.AgeMax <= c.AgeMin {
		return fmt.Errorf("age bounds must satisfy 0 <= AGE_MIN < AGE_MAX, got [%d, %d]", c.AgeMin, c.AgeMax)
	}

	if c.PharmacyIDStrategy != "sequential" && c.PharmacyIDStrategy != "random" {
		return fmt.Errorf("PHARMACY_ID_STRATEGY must be \"sequential\" or \"random\", got %q", c.PharmacyIDStrategy)
	}

	if c.ReportMealPlanDays <= 0 {
		return fmt.Errorf("REPORT_MEALPLAN_DAYS must be positive, got %d", c.ReportMealPlanDays)
	}
	if c.ReportHistoryLimit <= 0 {
		return fmt.Errorf("REPORT_HISTORY_LIMIT must be positive, got %d", c.ReportHistoryLimit)
	}

	return nil
}
