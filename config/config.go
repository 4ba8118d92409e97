// Ininicializing common application configuration
package config

import (
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Payments     PaymentsConfig     `mapstructure:"payments"`
	Payout       PayoutConfig       `mapstructure:"payout"`
	BankTransfer BankTransferConfig `mapstructure:"bank_transfer"`
	Admin        AdminConfig        `mapstructure:"admin"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Redis        RedisConfig        `mapstructure:"redis"`
}

type ServerConfig struct {
	AppVersion   string `json:"appVersion"`
	Host         string `json:"host" validate:"required"`
	Port         string `json:"port" validate:"required"`
	Timeout      time.Duration
	Idle_timeout time.Duration
	Env          string `json:"environment"`
	Mode         string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type TelegramConfig struct {
	BotToken     string `mapstructure:"bot_token"`
	OperatorChat string `mapstructure:"operator_chat"`
	Enabled      bool   `mapstructure:"enabled"`
}

// PaymentsConfig — настройки приема вебхуков платежного провайдера
type PaymentsConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// PayoutConfig — настройки батч-процессора выплат
type PayoutConfig struct {
	Threshold float64       `mapstructure:"threshold"` // минимальная сумма к выплате
	Interval  time.Duration `mapstructure:"interval"`
	Method    string        `mapstructure:"method"`
}

type BankTransferConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AdminConfig struct {
	Token string `mapstructure:"token"`
}

type WorkerConfig struct {
	MonitorInterval   int   `mapstructure:"monitor_interval"` // в минутах
	DLQAlertThreshold int64 `mapstructure:"dlq_alert_threshold"`
}

type RedisConfig struct {
	URL      string `json:"URL"`
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required"`
	Password string `json:"password" validate:"required"`
	DB       int    `json:"db" validate:"required"`

	// Настройки пула соединений
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	MaxIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

func LoadConfig() (*viper.Viper, error) {

	viperInstance := viper.New()

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	err := viperInstance.ReadInConfig()

	if err != nil {
		return nil, err
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		log.Fatalf("unable to decode config into struct, %v", err)
		return nil, err
	}
	return &c, nil
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
