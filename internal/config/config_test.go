package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomcast/qabroadcast/internal/config"
)

const sample = `
devices:
  - barcode: "A100"
  - barcode: "B200"
min_battery_lvl: 30
message_content:
  en_US: "QA broadcast {{date}}"
  zh_HK: "測試 {{date}}"
send_message: "*/15 * * * *"
message_user: 31
timezone: UTC
`

func TestParse_Sample(t *testing.T) {
	cfg, err := config.Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"A100", "B200"}, cfg.Barcodes())
	assert.Equal(t, 30, cfg.MinBatteryLevel)
	assert.Equal(t, "QA broadcast {{date}}", cfg.MessageContent["en_US"])
	assert.Len(t, cfg.MessageContent, 2)
	assert.Equal(t, "*/15 * * * *", cfg.SendMessage)
	assert.Equal(t, int64(31), cfg.MessageUser)
	assert.True(t, cfg.ShouldRunOnStart())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestParse_RunOnStartDisabled(t *testing.T) {
	cfg, err := config.Parse([]byte(sample + "run_on_start: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.ShouldRunOnStart())
}

func TestParse_DefaultTimezone(t *testing.T) {
	data := `
devices: [{barcode: "A100"}]
send_message: "@hourly"
message_user: 1
`
	cfg, err := config.Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTimezone, cfg.Timezone)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := config.Parse([]byte(sample + "battery: 10\n"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"no devices", "send_message: '@hourly'\ntimezone: UTC\n"},
		{"blank barcode", "devices: [{barcode: ' '}]\nsend_message: '@hourly'\ntimezone: UTC\n"},
		{"no schedule", "devices: [{barcode: A1}]\ntimezone: UTC\n"},
		{"negative battery", "devices: [{barcode: A1}]\nsend_message: '@hourly'\nmin_battery_lvl: -1\ntimezone: UTC\n"},
		{"missing message_user", "devices: [{barcode: A1}]\nsend_message: '@hourly'\ntimezone: UTC\n"},
		{"zero message_user", "devices: [{barcode: A1}]\nsend_message: '@hourly'\nmessage_user: 0\ntimezone: UTC\n"},
		{"bad timezone", "devices: [{barcode: A1}]\nsend_message: '@hourly'\ntimezone: Mars/Olympus\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broadcast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Devices, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("BROADCAST_CONFIG", "")
	assert.Equal(t, config.DefaultPath, config.PathFromEnv())

	t.Setenv("BROADCAST_CONFIG", "/etc/qabroadcast.yaml")
	assert.Equal(t, "/etc/qabroadcast.yaml", config.PathFromEnv())
}
