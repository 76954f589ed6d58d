package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		AppName          string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Kafka    KafkaConfig
		OTP      OTPConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		CORSAllowOrigins          []string
		OTPRateLimit              float64 // requests per second per IP; 0 disables
		OTPRateBurst              int
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Address  string // empty: OTPs are kept in memory
		Password string
		DB       int
	}

	KafkaConfig struct {
		Brokers []string // empty: events are only logged
		Topic   string
	}

	OTPConfig struct {
		Length         int
		TTL            time.Duration
		ResendCooldown time.Duration
		MaxAttempts    int
	}
)

func (dbc DatabaseConfig) Address() string {
	return dbc.Host + ":" + dbc.Port
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if it exists) and the environment.
// Environment variables are prefixed with ALUMNI_ and nested keys use underscores, e.g. ALUMNI_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}

	v.SetEnvPrefix("ALUMNI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		SendgridAPIKey: v.GetString("sendgridAPIKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			CORSAllowOrigins:          splitList(v.GetString("server.corsAllowOrigins")),
			OTPRateLimit:              v.GetFloat64("server.otpRateLimit"),
			OTPRateBurst:              v.GetInt("server.otpRateBurst"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
		},
		OTP: OTPConfig{
			Length:         v.GetInt("otp.length"),
			TTL:            v.GetDuration("otp.ttl"),
			ResendCooldown: v.GetDuration("otp.resendCooldown"),
			MaxAttempts:    v.GetInt("otp.maxAttempts"),
		},
	}
	if len(conf.Server.CORSAllowOrigins) == 0 {
		conf.Server.CORSAllowOrigins = []string{conf.FrontendBaseURL}
	}
	return conf
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "AlumniHub")
	v.SetDefault("secretKey", "k7#2n!vq@4w$zp9e&r0x^t)u+yb8(c*m1-jd6h=fl3sg5ai_o")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridAPIKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.corsAllowOrigins", "")
	v.SetDefault("server.otpRateLimit", 0.2)
	v.SetDefault("server.otpRateBurst", 5)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "alumnihub")
	v.SetDefault("database.user", "alumnihub")
	v.SetDefault("database.password", "alumnihub")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "alumni.events")

	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.ttl", 10*time.Minute)
	v.SetDefault("otp.resendCooldown", time.Minute)
	v.SetDefault("otp.maxAttempts", 5)
}

// splitList splits a comma separated config value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (env=%s, build=%s, debug=%t)", c.AppName, c.Env, c.Build, c.Debug)
}
