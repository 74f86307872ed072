package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServerCommand_PythonRunsUnderUV(t *testing.T) {
	cmd, err := serverCommand(context.Background(), "testdata/weather.py")
	require.NoError(t, err)

	abs, err := filepath.Abs("testdata/weather.py")
	require.NoError(t, err)

	require.Equal(t, []string{"uv", "--directory", filepath.Dir(abs), "run", "weather.py"}, cmd.Args)
}

func TestServerCommand_JavaScriptRunsUnderNode(t *testing.T) {
	cmd, err := serverCommand(context.Background(), "/srv/weather.js")
	require.NoError(t, err)
	require.Equal(t, []string{"node", "/srv/weather.js"}, cmd.Args)
}

func TestKindOf_RejectsUnknownSuffix(t *testing.T) {
	for _, locator := range []string{"server.txt", "server", "server.go", "serverpy"} {
		_, err := kindOf(locator)
		var kindErr *UnsupportedServerKindError
		require.ErrorAs(t, err, &kindErr, "locator %q", locator)
		require.Equal(t, locator, kindErr.Locator)
	}
}
