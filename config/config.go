package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppConfig struct {
	App struct {
		Name string `mapstructure:"NAME"`
		Port string `mapstructure:"PORT"` // local status API, e.g. ":8642"
	}

	BACKEND struct {
		BaseURL string `mapstructure:"BASE_URL" validate:"required,url"`
		WSURL   string `mapstructure:"WS_URL" validate:"required"`
		Token   string `mapstructure:"TOKEN" validate:"required"`
	}

	SYNC struct {
		PollInterval  time.Duration `mapstructure:"POLL_INTERVAL"`
		SilentTimeout time.Duration `mapstructure:"SILENT_TIMEOUT"`
		TypingExpiry  time.Duration `mapstructure:"TYPING_EXPIRY"`
		TypingIdle    time.Duration `mapstructure:"TYPING_IDLE"`
		PageSize      int           `mapstructure:"PAGE_SIZE"`
	}

	DATABASE struct {
		Redis struct {
			Enabled  bool   `mapstructure:"ENABLED"`
			Addr     string `mapstructure:"ADDR"`
			Password string `mapstructure:"PASSWORD"`
		}
	}
}

var Conf *AppConfig

func LoadConfig() error {
	viper.SetConfigName("application")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("ZEUGMA")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("APP.NAME", "zeugma-realtime")
	viper.SetDefault("APP.PORT", ":8642")
	viper.SetDefault("SYNC.POLL_INTERVAL", "15s")
	viper.SetDefault("SYNC.SILENT_TIMEOUT", "45s")
	viper.SetDefault("SYNC.TYPING_EXPIRY", "3s")
	viper.SetDefault("SYNC.TYPING_IDLE", "1s")
	viper.SetDefault("SYNC.PAGE_SIZE", 30)

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := viper.Unmarshal(&config); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	Conf = &config
	log.Info().Msg("configuration loaded...")
	return nil
}
