// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
//
// Конфигурация читается один раз при старте и дальше передаётся
// в конструкторы по значению; глобального состояния нет.
type Config struct {
	Env         string            `yaml:"env" env:"ENV" env-default:"local"`
	FrontendURL string            `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	HTTP        HTTPConfig        `yaml:"http"`
	DB          DBConfig          `yaml:"db"`
	Redis       RedisConfig       `yaml:"redis"`
	Secret      SecretConfig      `yaml:"secret"`
	Session     SessionConfig     `yaml:"session"`
	Email       EmailConfig       `yaml:"email"`
	S3          S3Config          `yaml:"s3"`
	GoogleOAuth GoogleOAuthConfig `yaml:"google_oauth"`
	Timeouts    TimeoutConfig     `yaml:"timeouts"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"5001"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// BaseURL — внешний адрес API; из него строятся ссылки в письмах.
	BaseURL string `yaml:"base_url" env:"HTTP_BASE_URL" env-default:"http://127.0.0.1:5001"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
}

// RedisConfig — подключение к Redis (одноразовые токены и сессии).
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-required:"true"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"authenticator:"`
}

// SecretConfig — секреты и сроки жизни одноразовых токенов.
type SecretConfig struct {
	// SecretKey — материал для вывода симметричного ключа токенов.
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY" env-required:"true"`
	// HMACSecret — дополнительный секрет, участвующий в аутентификации токена.
	HMACSecret string `yaml:"hmac_secret" env:"HMAC_SECRET" env-required:"true"`
	// TokenExpiration — срок жизни ссылок из писем (подтверждение e-mail, сброс пароля).
	TokenExpiration time.Duration `yaml:"token_expiration" env:"TOKEN_EXPIRATION" env-default:"15m"`
	// PasswordChangeExpiration — срок жизни токена смены пароля, выдаваемого после перехода по ссылке.
	PasswordChangeExpiration time.Duration `yaml:"password_change_expiration" env:"PASSWORD_CHANGE_EXPIRATION" env-default:"1h"`
}

// SessionConfig — серверные сессии (scs поверх Redis).
type SessionConfig struct {
	Lifetime     time.Duration `yaml:"lifetime" env:"SESSION_LIFETIME" env-default:"336h"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SESSION_IDLE_TIMEOUT" env-default:"0s"`
	CookieName   string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"sessionid"`
	CookieSecure bool          `yaml:"cookie_secure" env:"SESSION_COOKIE_SECURE" env-default:"true"`
	Prefix       string        `yaml:"prefix" env:"SESSION_PREFIX" env-default:"session:"`
}

// EmailConfig — параметры SMTP. Пустой Host означает, что письма
// только пишутся в лог (удобно для локальной разработки).
type EmailConfig struct {
	Host     string `yaml:"host" env:"EMAIL_HOST"`
	Port     int    `yaml:"port" env:"EMAIL_PORT" env-default:"587"`
	Username string `yaml:"username" env:"EMAIL_HOST_USER"`
	Password string `yaml:"password" env:"EMAIL_HOST_USER_PASSWORD"`
	From     string `yaml:"from" env:"EMAIL_FROM" env-default:"no-reply@localhost"`
	FromName string `yaml:"from_name" env:"EMAIL_FROM_NAME" env-default:"Authenticator"`
	// TLS — required | opportunistic | none.
	TLS string `yaml:"tls" env:"EMAIL_TLS" env-default:"opportunistic"`
}

// S3Config — объектное хранилище (MinIO/S3) для аватаров.
type S3Config struct {
	Endpoint          string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"localhost:9000"`
	AccessKey         string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey         string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Bucket            string `yaml:"bucket" env:"S3_BUCKET" env-default:"authenticator"`
	UseSSL            bool   `yaml:"use_ssl" env:"S3_USE_SSL" env-default:"false"`
	PublicBaseURL     string `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL" env-default:"http://localhost:9000"`
	MaxThumbnailBytes int64  `yaml:"max_thumbnail_bytes" env:"S3_MAX_THUMBNAIL_BYTES" env-default:"1048576"`
}

// GoogleOAuthConfig — параметры OAuth-клиента Google.
type GoogleOAuthConfig struct {
	ClientID     string `yaml:"client_id" env:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	RedirectURI  string `yaml:"redirect_uri" env:"GOOGLE_OAUTH_REDIRECT_URI"`
}

// Enabled сообщает, сконфигурирован ли вход через Google.
func (g GoogleOAuthConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	// Request — общий дедлайн HTTP-запроса.
	Request time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"15s"`
	// CacheOp — дедлайн одной мутации Redis; не зависит от отмены запроса.
	CacheOp time.Duration `yaml:"cache_op" env:"CACHE_OP_TIMEOUT" env-default:"2s"`
}

// Validate проверяет значения, которые cleanenv проверить не может.
func (c *Config) Validate() error {
	switch {
	case c.Secret.SecretKey == "":
		return errors.New("secret.secret_key is empty")
	case c.Secret.HMACSecret == "":
		return errors.New("secret.hmac_secret is empty")
	case c.Secret.TokenExpiration <= 0:
		return errors.New("secret.token_expiration must be positive")
	case c.Secret.PasswordChangeExpiration <= 0:
		return errors.New("secret.password_change_expiration must be positive")
	case c.Timeouts.CacheOp <= 0:
		return errors.New("timeouts.cache_op must be positive")
	case c.S3.MaxThumbnailBytes <= 0:
		return errors.New("s3.max_thumbnail_bytes must be positive")
	// Без SMTP письма уходят в лог вместе со ссылками; в prod это запрещено.
	case c.Env == "prod" && c.Email.Host == "":
		return errors.New("email.host is required in prod")
	}

	return nil
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла поверх значений из YAML накладываются ENV-переменные.
func Load(path string) (*Config, error) {
	var cfg Config

	fromFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q does not exist: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	var (
		c   *Config
		err error
	)

	switch envPath := os.Getenv("CONFIG_PATH"); {
	case path != "":
		c, err = fromFile(path)
	case envPath != "":
		c, err = fromFile(envPath)
	default:
		if _, statErr := os.Stat("local.yaml"); statErr == nil {
			c, err = fromFile("local.yaml")
			break
		}

		if err = cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
		c = &cfg
	}

	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return c, nil
}
