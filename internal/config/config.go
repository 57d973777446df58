package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Token    TokenConfig
	Storage  StorageConfig
	Email    EmailConfig
	Google   GoogleConfig
	App      AppConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит настройки подключения к Redis (используется только
// rate limiter'ом; при пустой конфигурации лимитер выключен)
type RedisConfig struct {
	// Mode: режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: список адресов Redis (хост:порт). Для single используется первый адрес.
	Addrs []string `mapstructure:"addrs"`

	// Addr: альтернативный адрес для режима single
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: имя мастер-сервера (только для режима sentinel)
	MasterName string `mapstructure:"master_name"`
}

// TokenConfig содержит настройки подписанных токенов
type TokenConfig struct {
	Secret            string `mapstructure:"secret"`
	SessionExpiryHrs  int    `mapstructure:"sessionExpiryHrs"`
	ApprovalExpiryHrs int    `mapstructure:"approvalExpiryHrs"` // срок действия capability-ссылок одобрения
}

// StorageConfig содержит учетные данные облачного файлового хранилища.
// Access token не хранится: он получается по refresh-токену и кешируется
// в процессе до истечения срока.
type StorageConfig struct {
	AppKey       string `mapstructure:"app_key"`
	AppSecret    string `mapstructure:"app_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// EmailConfig содержит настройки транзакционной почты
type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
	// AdminEmail — получатель служебных уведомлений (регистрации, запросы оплаты)
	AdminEmail string `mapstructure:"admin_email"`
}

// GoogleConfig содержит настройки проверки Google ID-токенов
type GoogleConfig struct {
	// ClientID — разрешенная аудитория токена
	ClientID string `mapstructure:"client_id"`
}

// AppConfig содержит прикладные настройки
type AppConfig struct {
	// BaseURL — внешний адрес API, используется в ссылках писем
	// (подтверждение email, сброс пароля, одобрение заказа)
	BaseURL string `mapstructure:"base_url"`
	// OrderRetention — сколько самых свежих заказов пользователя переживают
	// очистку после загрузки
	OrderRetention int `mapstructure:"order_retention"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfigured возвращает true, если Redis задан в конфигурации
func (r *RedisConfig) RedisConfigured() bool {
	return len(r.Addrs) > 0 || r.Addr != ""
}

// StorageConfigured возвращает true при полном наборе учетных данных хранилища
func (s *StorageConfig) StorageConfigured() bool {
	return s.AppKey != "" && s.AppSecret != "" && s.RefreshToken != ""
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // отдельный экземпляр Viper, чтобы избежать глобального состояния

	// Привязываем переменные окружения явно
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.readtimeout", "SERVER_READTIMEOUT")
	vip.BindEnv("server.writetimeout", "SERVER_WRITETIMEOUT")

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("token.secret", "TOKEN_SECRET")
	vip.BindEnv("token.sessionExpiryHrs", "TOKEN_SESSIONEXPIRYHRS")
	vip.BindEnv("token.approvalExpiryHrs", "TOKEN_APPROVALEXPIRYHRS")

	vip.BindEnv("storage.app_key", "STORAGE_APP_KEY")
	vip.BindEnv("storage.app_secret", "STORAGE_APP_SECRET")
	vip.BindEnv("storage.refresh_token", "STORAGE_REFRESH_TOKEN")

	vip.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")
	vip.BindEnv("email.admin_email", "EMAIL_ADMIN")

	vip.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")

	vip.BindEnv("app.base_url", "APP_BASE_URL")
	vip.BindEnv("app.order_retention", "APP_ORDER_RETENTION")

	// Путь к файлу конфигурации (файл опционален, env vars достаточно)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Умолчания
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 15
	}
	if cfg.App.OrderRetention <= 0 {
		cfg.App.OrderRetention = 3
	}

	// Логирование конфигурации (только вне release режима)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Configured: %t", cfg.Redis.RedisConfigured())
		log.Printf("Token Secret Set: %t", cfg.Token.Secret != "")
		log.Printf("Storage Configured: %t", cfg.Storage.StorageConfigured())
		log.Printf("Resend API Key Set: %t", cfg.Email.ResendAPIKey != "")
		log.Printf("Google Client ID Set: %t", cfg.Google.ClientID != "")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	// Проверка обязательных параметров
	if cfg.Token.Secret == "" {
		return nil, fmt.Errorf("token secret is required in config (check TOKEN_SECRET env var)")
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}

	return &cfg, nil
}
