package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	VerseAPIBaseURL string `env:"VERSE_API_BASE_URL,default=https://api.alquran.cloud/v1"`

	AWSRegion    string `env:"AWS_REGION,default=eu-west-1"`
	AWSAccessKey string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey string `env:"AWS_SECRET_ACCESS_KEY"`
	MailFrom     string `env:"MAIL_FROM,required=true"`
	MailSubject  string `env:"MAIL_SUBJECT,default=Daily Verse"`

	WhatsAppGatewayURL   string `env:"WHATSAPP_GATEWAY_URL,required=true"`
	WhatsAppGatewayToken string `env:"WHATSAPP_GATEWAY_TOKEN"`

	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	BatchSize          int    `env:"DISPATCH_BATCH_SIZE,default=5"`
	SendTimeoutSeconds int    `env:"SEND_TIMEOUT_SECONDS,default=15"`
	DispatchCron       string `env:"DISPATCH_CRON"`
	RateLimitPerSec    int    `env:"RATE_LIMIT_PER_SEC,default=10"`

	AdminEmail        string `env:"ADMIN_EMAIL,required=true"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH,required=true"`
	JWTSecret         string `env:"JWT_SECRET,required=true"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
