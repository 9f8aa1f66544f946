package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.Set("biblio", "biblio.csv")
	v.Set("out", t.TempDir())
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	require.Equal(t, 3, cfg.Concurrency)
	require.Equal(t, 60*time.Second, cfg.RequestTimeout)
	require.Equal(t, 3, cfg.Retries)
	require.Equal(t, 1500*time.Millisecond, cfg.Delay)
	require.False(t, cfg.AcceptScanOnly)
	require.False(t, cfg.UseBrowser)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value any
	}{
		{"zero concurrency", "concurrency", 0},
		{"zero timeout", "timeout", time.Duration(0)},
		{"zero retries", "retries", 0},
		{"negative delay", "delay", -time.Second},
		{"negative max_records", "max_records", -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newViper(t)
			v.Set(tc.key, tc.value)
			_, err := Load(v)
			require.Error(t, err)
		})
	}
}

func TestValidateRequiresPaths(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	_, err := Load(v)
	require.Error(t, err)
}

func TestRequireSecrets(t *testing.T) {
	t.Setenv("ADS_TOKEN", "")
	t.Setenv("UNPAYWALL_EMAIL", "")

	v := newViper(t)
	v.Set("require_secrets", true)
	_, err := Load(v)
	require.Error(t, err)

	t.Setenv("ADS_TOKEN", "token")
	t.Setenv("UNPAYWALL_EMAIL", "ops@example.org")
	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "token", cfg.Secrets.ADSToken)
	require.Equal(t, "ops@example.org", cfg.Secrets.UnpaywallEmail)
}
