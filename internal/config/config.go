package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Janelas de notificação que as cadências de varredura precisam respeitar
const (
	AppointmentWindow = time.Hour
	ActivityWindow    = 30 * time.Minute
	MaxPushBatchSize  = 500
)

type Config struct {
	// Service
	Environment string
	ServiceName string
	MetricsPort string

	// Database
	DatabaseURL string

	// Redis (feed de mensagens do chat)
	RedisURL          string
	ChatChannelPrefix string
	ChatQueueSize     int

	// Firebase
	FirebaseCredentialsPath string
	PushPrevalidate         bool
	PushBatchSize           int

	// Scheduler
	MedicationScanInterval  time.Duration
	AppointmentScanInterval time.Duration
	ActivityScanInterval    time.Duration
	ChatReconcileInterval   time.Duration
	JobTimeout              time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Email fallback (aviso de token removido)
	EnableEmailFallback bool
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	SMTPFromName        string
	SMTPFromEmail       string
}

// Load lê o .env (se existir) e as variáveis de ambiente
func Load() (*Config, error) {
	// .env é opcional; em produção as variáveis vêm do ambiente
	_ = godotenv.Load()

	return &Config{
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		ServiceName: getEnvWithDefault("SERVICE_NAME", "eva-notify"),
		MetricsPort: os.Getenv("METRICS_PORT"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisURL:          getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		ChatChannelPrefix: getEnvWithDefault("CHAT_CHANNEL_PREFIX", "chat:comunidade:"),
		ChatQueueSize:     getEnvInt("CHAT_QUEUE_SIZE", 256),

		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
		PushPrevalidate:         getEnvBool("PUSH_PREVALIDATE", true),
		PushBatchSize:           getEnvInt("PUSH_BATCH_SIZE", MaxPushBatchSize),

		MedicationScanInterval:  getEnvDuration("MEDICATION_SCAN_INTERVAL", 10*time.Minute),
		AppointmentScanInterval: getEnvDuration("APPOINTMENT_SCAN_INTERVAL", 15*time.Minute),
		ActivityScanInterval:    getEnvDuration("ACTIVITY_SCAN_INTERVAL", 10*time.Minute),
		ChatReconcileInterval:   getEnvDuration("CHAT_RECONCILE_INTERVAL", 15*time.Minute),
		JobTimeout:              getEnvDuration("JOB_TIMEOUT", 5*time.Minute),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "json"),

		EnableEmailFallback: getEnvBool("ENABLE_EMAIL_FALLBACK", false),
		SMTPHost:            getEnvWithDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:            getEnvInt("SMTP_PORT", 587),
		SMTPUsername:        os.Getenv("SMTP_USERNAME"),
		SMTPPassword:        os.Getenv("SMTP_PASSWORD"),
		SMTPFromName:        getEnvWithDefault("SMTP_FROM_NAME", "EVA - Assistente Virtual"),
		SMTPFromEmail:       getEnvWithDefault("SMTP_FROM_EMAIL", "web2ajax@gmail.com"),
	}, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvDuration aceita "10m", "1h30m" ou um inteiro em minutos
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	return defaultValue
}

// Validate valida se todas as configurações obrigatórias estão presentes
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.FirebaseCredentialsPath == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	intervals := map[string]time.Duration{
		"MEDICATION_SCAN_INTERVAL":  c.MedicationScanInterval,
		"APPOINTMENT_SCAN_INTERVAL": c.AppointmentScanInterval,
		"ACTIVITY_SCAN_INTERVAL":    c.ActivityScanInterval,
		"CHAT_RECONCILE_INTERVAL":   c.ChatReconcileInterval,
		"JOB_TIMEOUT":               c.JobTimeout,
	}
	for key, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}

	// Cadência >= janela pode pular eventos entre dois ticks
	if c.AppointmentScanInterval >= AppointmentWindow {
		return fmt.Errorf("APPOINTMENT_SCAN_INTERVAL (%s) must be shorter than the %s reminder window",
			c.AppointmentScanInterval, AppointmentWindow)
	}
	if c.ActivityScanInterval >= ActivityWindow {
		return fmt.Errorf("ACTIVITY_SCAN_INTERVAL (%s) must be shorter than the %s reminder window",
			c.ActivityScanInterval, ActivityWindow)
	}

	if c.PushBatchSize <= 0 || c.PushBatchSize > MaxPushBatchSize {
		return fmt.Errorf("PUSH_BATCH_SIZE must be between 1 and %d, got %d", MaxPushBatchSize, c.PushBatchSize)
	}

	if c.ChatQueueSize <= 0 {
		return fmt.Errorf("CHAT_QUEUE_SIZE must be positive, got %d", c.ChatQueueSize)
	}

	if c.EnableEmailFallback && (c.SMTPUsername == "" || c.SMTPPassword == "") {
		return fmt.Errorf("ENABLE_EMAIL_FALLBACK requires SMTP_USERNAME and SMTP_PASSWORD")
	}

	return nil
}
