package internal

import (
	"fmt"
	"nolmessage/domain"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// DefaultAdmins applies when ADMIN_USERNAMES is unset.
var DefaultAdmins = []string{"flownol", "pagekn"}

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=3000" validate:"min=1,max=65535"`
	GrpcPort             int           `env:"GRPC_PORT,default=3001" validate:"min=0,max=65535"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	MaxMessages          int           `env:"MAX_MESSAGES,default=25" validate:"min=1"`
	MaxUsersPerChat      int           `env:"MAX_USERS_PER_CHAT,default=15" validate:"min=1"`
	MaxUsernameLength    int           `env:"MAX_USERNAME_LENGTH,default=20" validate:"min=1"`
	MaxTextLength        int           `env:"MAX_TEXT_LENGTH,default=500" validate:"min=1"`
	AdminUsernames       string        `env:"ADMIN_USERNAMES"`
	TimestampLayout      string        `env:"TIMESTAMP_LAYOUT,default=3:04:05 PM" validate:"required"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024" validate:"min=1"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"min=1"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=100ms" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"min=0"`
	RoomIdleTTL          time.Duration `env:"ROOM_IDLE_TTL,default=0s" validate:"min=0"`
}

// LoadConfig reads an optional .env file then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig(files ...string) (Config, error) {
	// A missing .env is fine, the defaults cover a local run.
	_ = godotenv.Load(files...)

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func (c Config) Limits() domain.Limits {
	return domain.Limits{
		MaxMembers:        c.MaxUsersPerChat,
		MaxHistory:        c.MaxMessages,
		MaxUsernameLength: c.MaxUsernameLength,
		MaxTextLength:     c.MaxTextLength,
	}
}

// AdminList splits ADMIN_USERNAMES on commas, dropping blanks.
func (c Config) AdminList() []string {
	if c.AdminUsernames == "" {
		return DefaultAdmins
	}
	parts := lo.Map(strings.Split(c.AdminUsernames, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
	return lo.Compact(parts)
}

func (c Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) GrpcAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GrpcPort)
}
