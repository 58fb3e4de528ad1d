package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"GO_ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// Redis (queue + cache)
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Generation
	GenerationProvider string        `mapstructure:"GENERATION_PROVIDER"` // gemini, openai
	GenerationTimeout  time.Duration `mapstructure:"GENERATION_TIMEOUT"`
	GeminiAPIKey       string        `mapstructure:"GEMINI_API_KEY"`
	GeminiImageModel   string        `mapstructure:"GEMINI_IMAGE_MODEL"`
	GeminiTextModel    string        `mapstructure:"GEMINI_TEXT_MODEL"`
	OpenAIAPIKey       string        `mapstructure:"OPEN_AI_API_KEY"`
	OpenAIModel        string        `mapstructure:"OPENAI_MODEL"`
	OpenAIBaseURL      string        `mapstructure:"OPENAI_BASE_URL"`

	// Processing
	ProcessingMode string `mapstructure:"PROCESSING_MODE"` // inline, queue
	RunWorker      bool   `mapstructure:"RUN_WORKER"`

	// Storage
	StorageDriver string `mapstructure:"STORAGE_DRIVER"` // local, s3
	LocalImageDir string `mapstructure:"LOCAL_IMAGE_DIR"`

	// R2 / S3
	R2AccountID       string `mapstructure:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `mapstructure:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `mapstructure:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `mapstructure:"R2_BUCKET_NAME"`
	R2PublicURL       string `mapstructure:"R2_PUBLIC_URL"` // Custom domain
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	ProcessingInline = "inline"
	ProcessingQueue  = "queue"

	StorageLocal = "local"
	StorageS3    = "s3"
)

var AppConfig *Config

// defaults registers every key so AutomaticEnv values reach Unmarshal even
// without a .env file.
var defaults = map[string]interface{}{
	"PORT":                 "3000",
	"GO_ENV":               "development",
	"DATABASE_URL":         "sqlite:bannerstudio.db",
	"JWT_SECRET":           "",
	"FRONTEND_URL":         "http://localhost:5173",
	"REDIS_ADDR":           "",
	"REDIS_PASSWORD":       "",
	"GENERATION_PROVIDER":  ProviderGemini,
	"GENERATION_TIMEOUT":   "5m",
	"GEMINI_API_KEY":       "",
	"GEMINI_IMAGE_MODEL":   "gemini-2.5-flash-image",
	"GEMINI_TEXT_MODEL":    "gemini-2.5-flash",
	"OPEN_AI_API_KEY":      "",
	"OPENAI_MODEL":         "gpt-4.1-mini",
	"OPENAI_BASE_URL":      "https://api.openai.com/v1",
	"PROCESSING_MODE":      ProcessingInline,
	"RUN_WORKER":           false,
	"STORAGE_DRIVER":       StorageLocal,
	"LOCAL_IMAGE_DIR":      "public/designs",
	"R2_ACCOUNT_ID":        "",
	"R2_ACCESS_KEY_ID":     "",
	"R2_SECRET_ACCESS_KEY": "",
	"R2_BUCKET_NAME":       "",
	"R2_PUBLIC_URL":        "",
}

func LoadConfig() {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}
}

// UsesQueue reports whether generation jobs go through Redis instead of
// running inside the request.
func (c *Config) UsesQueue() bool {
	return c.ProcessingMode == ProcessingQueue
}
