package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roamwatch/internal/config"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "roamwatch", cmd.Use)
	assert.Contains(t, cmd.Long, "roam")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"monitor", "scan", "replay", "test", "sessions"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "c", cfg.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "sessions", "--db", "x.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigFileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, _, err := execute(t, "--config", dir+"/nope.cue", "test", dir)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("schema violation", func(t *testing.T) {
		path := writeFile(t, dir, "bad.cue", `ingressBuffer: 0`+"\n")
		_, _, err := execute(t, "--config", path, "test", dir)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		var cfgErr *config.Error
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "ingressBuffer", cfgErr.Field)
	})
}

func TestRootOptionsFallbacks(t *testing.T) {
	opts := &RootOptions{}
	assert.Equal(t, config.Default(), opts.config())
	assert.NotNil(t, opts.logger())
}

func TestVerboseLogging(t *testing.T) {
	script := writeScript(t, officeScript)
	_, stderr, err := execute(t, "-v", "monitor", "--script", script, "--poll", "10ms", "--duration", "10s")
	require.NoError(t, err)
	assert.Contains(t, stderr, "level=DEBUG")
	assert.Contains(t, stderr, "monitor started")
}
