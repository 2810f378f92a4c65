package config

import (
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) string {
	dir, err := ioutil.TempDir("", "sbd-config")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "sbdd.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte(text), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":10800", c.DirectIP.Listen)
	assert.Equal(t, 30*time.Second, c.DirectIP.IdleTimeout.Duration)
	home, err := homedir.Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "sbd"), c.Storage.Root)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[DirectIP]
Listen = "127.0.0.1:10801"
IdleTimeout = "5s"
SessionTimeout = "1m30s"
MaxConnections = 20
Confirm = true

[Storage]
Root = "/var/lib/sbd"
Memory = true
RedisAddr = "localhost:6379"

[Monitor]
Listen = ":8080"
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:10801", c.DirectIP.Listen)
	assert.Equal(t, 5*time.Second, c.DirectIP.IdleTimeout.Duration)
	assert.Equal(t, 90*time.Second, c.DirectIP.SessionTimeout.Duration)
	assert.Equal(t, 20, c.DirectIP.MaxConnections)
	assert.True(t, c.DirectIP.Confirm)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Second, c.DirectIP.ShutdownTimeout.Duration)
	assert.Equal(t, "/var/lib/sbd", c.Storage.Root)
	assert.True(t, c.Storage.Memory)
	assert.Equal(t, "localhost:6379", c.Storage.RedisAddr)
	assert.Equal(t, ":8080", c.Monitor.Listen)
}

func TestLoadErrors(t *testing.T) {
	tt := []struct {
		name string
		text string
	}{
		{"bad duration", "[DirectIP]\nIdleTimeout = \"soon\"\n"},
		{"unknown key", "[DirectIP]\nPort = 10800\n"},
		{"negative", "[DirectIP]\nMaxConnections = -1\n"},
		{"zero timeout", "[DirectIP]\nSessionTimeout = \"0s\"\n"},
		{"not toml", "DirectIP = {"},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.text))
			assert.Error(t, err)
		})
	}

	_, err := Load("/nonexistent/sbdd.toml")
	assert.Error(t, err)
}

func TestOverrides(t *testing.T) {
	path := writeConfig(t, "[DirectIP]\nListen = \":1\"\nConfirm = true\n[Monitor]\nListen = \":2\"\n")
	c, err := Load(path)
	require.NoError(t, err)

	fs := flag.NewFlagSet("sbdd", flag.ContinueOnError)
	o := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-addr", ":10900", "-confirm=false"}))
	require.NoError(t, o.Apply(c))

	assert.Equal(t, ":10900", c.DirectIP.Listen)
	assert.False(t, c.DirectIP.Confirm)
	// flags left unset do not clobber the file
	assert.Equal(t, ":2", c.Monitor.Listen)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("250ms")))
	assert.Equal(t, 250*time.Millisecond, d.Duration)
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "250ms", string(text))
}
