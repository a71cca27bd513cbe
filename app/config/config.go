package config

// PROPRIETARY AND CONFIDENTIAL
// This code contains trade secrets and confidential material of Finimen Sniper / FSC.
// Any unauthorized use, disclosure, or duplication is strictly prohibited.
// © 2025 Finimen Sniper / FSC. All rights reserved.

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultSecret = "your_default_secret_change_in_production"

type Config struct {
	Environment EnvironmentConfig
	Server      ServerConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Password    PasswordConfig
	RateLimit   RateLimitConfig
	Email       EmailConfig
	Storage     StorageConfig
	Kafka       KafkaConfig
	Tracing     TracingConfig
	Avatar      AvatarConfig
}

type EnvironmentConfig struct {
	Current string
}

type ServerConfig struct {
	Port          string
	ReadTimeout   int
	WriteTimeout  int
	IdleTimeout   int
	MaxUploadSize int64
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	SecretKey string
	TTL       time.Duration
}

// PasswordConfig.BcryptCost is clamped to the range bcrypt accepts.
type PasswordConfig struct {
	BcryptCost int
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// EmailConfig is optional; an empty SMTHost disables outgoing mail.
type EmailConfig struct {
	SMTHost  string
	SMTPort  string
	Username string
	Password string
	From     string
}

// StorageConfig points at an S3 compatible bucket for avatars.
// An empty Endpoint disables uploads and every user keeps a placeholder avatar.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	PublicURL string
}

type KafkaConfig struct {
	Brokers string
	Topic   string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

type AvatarConfig struct {
	PlaceholderURL string
}

func LoadConfig() (config Config, err error) {
	viper.SetConfigName("app")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, err
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("environment.current", "development")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.readtimeout", 15)
	viper.SetDefault("server.writetimeout", 15)
	viper.SetDefault("server.idletimeout", 60)
	viper.SetDefault("server.maxuploadsize", 5<<20)
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "chatapp")
	viper.SetDefault("mongo.timeout", 10*time.Second)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secretkey", defaultSecret)
	viper.SetDefault("jwt.ttl", 30*24*time.Hour)
	viper.SetDefault("password.bcryptcost", 10)
	viper.SetDefault("ratelimit.maxrequests", 100)
	viper.SetDefault("ratelimit.window", time.Minute)
	viper.SetDefault("email.smthost", "")
	viper.SetDefault("email.smtport", "587")
	viper.SetDefault("email.username", "")
	viper.SetDefault("email.password", "")
	viper.SetDefault("email.from", "")
	viper.SetDefault("storage.endpoint", "")
	viper.SetDefault("storage.accesskey", "")
	viper.SetDefault("storage.secretkey", "")
	viper.SetDefault("storage.usessl", false)
	viper.SetDefault("storage.bucket", "avatars")
	viper.SetDefault("storage.publicurl", "")
	viper.SetDefault("kafka.brokers", "")
	viper.SetDefault("kafka.topic", "messages.created")
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")
	viper.SetDefault("tracing.servicename", "chatapp")
	viper.SetDefault("avatar.placeholderurl", "https://ui-avatars.com/api/?name=%s&background=random")

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.JWT.SecretKey == defaultSecret {
		log.Println("WARNING: Using default JWT secret key. This is insecure for production.")
	}

	return config, nil
}
