package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.log")

	logger, err := New(&Options{
		Name:        "advisor",
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{path},
	})
	require.NoError(t, err)

	logger.Debug("cache hit")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"cache hit"`)
	assert.Contains(t, string(data), `"logger":"advisor"`)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(&Options{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = New(&Options{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestOptions_AddFlags(t *testing.T) {
	opts := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--log.level=warn", "--log.format=json"}))
	assert.Equal(t, "warn", opts.Level)
	assert.Equal(t, "json", opts.Format)
}
