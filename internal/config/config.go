package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURL         string // redirect target after magic-link sign in, also used for listing links in emails
	APIURL              string // public base of this API, used to build magic links
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	// Storage: Supabase Storage when SUPABASE_URL is set, otherwise S3/MinIO when S3_ENDPOINT is set.
	SupabaseURL       string
	SupabaseSecretKey string // must be service_role key (Dashboard → API), not anon key
	ListingBucket     string
	S3Endpoint        string
	S3AccessKey       string
	S3SecretKey       string
	S3UseSSL          bool

	// Email: Brevo when SENDINBLUE_API_KEY is set, otherwise SMTP when SMTP_USERNAME is set.
	SendinblueAPIKey string
	MailFrom         string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string

	// Notification function. When NOTIFY_FUNCTION_URL is empty the function runs in-process.
	FunctionsKey      string
	NotifyFunctionURL string

	// Change feed driver: "redis" (default), "nats" or "memory".
	ChangeFeedDriver string
	NATSURL          string

	SearchThreshold float64
	PageSize        int
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SMTP_HOSTNAME", "smtp.gmail.com")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SEARCH_THRESHOLD", 0.3)
	viper.SetDefault("PAGE_SIZE", 20)
	viper.SetDefault("CHANGEFEED_DRIVER", "redis")
	viper.SetDefault("LISTING_BUCKET", "listing-images")
	viper.SetDefault("LOG_LEVEL", "info")

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = viper.GetString("NODE_ENV")
	}
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	return &Config{
		Env:                 env,
		Port:                port,
		LogLevel:            viper.GetString("LOG_LEVEL"),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURL:         frontendURL(viper.GetString("SITE_URL")),
		APIURL:              apiURL(viper.GetString("API_URL"), port),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		SupabaseURL:         viper.GetString("SUPABASE_URL"),
		SupabaseSecretKey:   viper.GetString("SUPABASE_SECRET_KEY"),
		ListingBucket:       viper.GetString("LISTING_BUCKET"),
		S3Endpoint:          viper.GetString("S3_ENDPOINT"),
		S3AccessKey:         viper.GetString("S3_ACCESS_KEY"),
		S3SecretKey:         viper.GetString("S3_SECRET_KEY"),
		S3UseSSL:            strings.EqualFold(viper.GetString("S3_USE_SSL"), "true"),
		SendinblueAPIKey:    viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		SMTPHost:            viper.GetString("SMTP_HOSTNAME"),
		SMTPPort:            viper.GetInt("SMTP_PORT"),
		SMTPUsername:        viper.GetString("SMTP_USERNAME"),
		SMTPPassword:        viper.GetString("SMTP_PASSWORD"),
		FunctionsKey:        viper.GetString("FUNCTIONS_KEY"),
		NotifyFunctionURL:   viper.GetString("NOTIFY_FUNCTION_URL"),
		ChangeFeedDriver:    strings.ToLower(viper.GetString("CHANGEFEED_DRIVER")),
		NATSURL:             viper.GetString("NATS_URL"),
		SearchThreshold:     viper.GetFloat64("SEARCH_THRESHOLD"),
		PageSize:            viper.GetInt("PAGE_SIZE"),
	}, nil
}

func frontendURL(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if s == "" {
		return "http://localhost:3000"
	}
	return s
}

func apiURL(s, port string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if s == "" {
		return "http://localhost:" + port
	}
	return s
}
