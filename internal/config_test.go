package internal

import (
	"nolmessage/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)

	config, err := LoadConfig("testdata/missing.env")
	req.NoError(err)

	req.Equal(3000, config.Port)
	req.Equal(3001, config.GrpcPort)
	req.Equal("3:04:05 PM", config.TimestampLayout)
	req.Equal(100*time.Millisecond, config.SinkTimeout)
	req.Equal(time.Duration(0), config.RoomIdleTTL)
	req.Equal(domain.DefaultLimits(), config.Limits())
	req.Equal([]string{"flownol", "pagekn"}, config.AdminList())
	req.Equal("0.0.0.0:3000", config.HTTPAddress())
}

func TestLoadConfig_From_Environment(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "8080")
	t.Setenv("MAX_USERS_PER_CHAT", "2")
	t.Setenv("ADMIN_USERNAMES", " root, ,ops ")
	t.Setenv("ROOM_IDLE_TTL", "10m")

	config, err := LoadConfig("testdata/missing.env")
	req.NoError(err)

	req.Equal(8080, config.Port)
	req.Equal(2, config.Limits().MaxMembers)
	req.Equal([]string{"root", "ops"}, config.AdminList())
	req.Equal(10*time.Minute, config.RoomIdleTTL)
}

func TestLoadConfig_Rejects_Invalid_Values(t *testing.T) {
	req := require.New(t)
	t.Setenv("MAX_MESSAGES", "0")

	_, err := LoadConfig("testdata/missing.env")
	req.Error(err)
	req.Contains(err.Error(), "MaxMessages")
}

func TestLoadConfig_Rejects_Unknown_Log_Level(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := LoadConfig("testdata/missing.env")
	require.Error(t, err)
}
