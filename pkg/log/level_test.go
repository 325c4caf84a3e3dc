package log

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, Debug, Parse("debug"))
	require.Equal(t, Warn, Parse("WARNING"))
	require.Equal(t, Error, Parse(" error "))
	require.Equal(t, Info, Parse(""))
	require.Equal(t, Info, Parse("bogus"))
}

func TestLevelString(t *testing.T) {
	require.Equal(t, "DEBUG", Debug.String())
	require.Equal(t, "FATAL", Fatal.String())
	require.Equal(t, "INFO", LogLevel(42).String())
}
