package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// RELAY_GRPC_ADDR targets a running relay; when empty the suite boots one in-process
	RelayGrpcAddr string `envconfig:"RELAY_GRPC_ADDR"`
	// E2E_DEBUG_JSON allows dumping every streamed frame as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// Must match the relay capacity when RELAY_GRPC_ADDR is set
	MaxUsersPerChat int `envconfig:"MAX_USERS_PER_CHAT" default:"15"`
	MaxMessages     int `envconfig:"MAX_MESSAGES" default:"25"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
