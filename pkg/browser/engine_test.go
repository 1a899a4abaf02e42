package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEngine(t *testing.T) {
	tests := []struct {
		name string
		want Engine
	}{
		{name: "chrome", want: EnginePrimary},
		{name: "Chrome", want: EnginePrimary},
		{name: " chromium ", want: EnginePrimary},
		{name: "firefox", want: EngineSecondary},
		{name: "edge", want: EngineTertiary},
		{name: "MSEdge", want: EngineTertiary},
		{name: "safari", want: EngineNative},
		{name: "webkit", want: EngineNative},
		{name: "native", want: EngineNative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEngine(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEngine_Unsupported(t *testing.T) {
	_, err := ParseEngine("opera")
	require.Error(t, err)

	var unsupported *UnsupportedEngineError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "opera", unsupported.Name)
	assert.Contains(t, err.Error(), `"opera"`)
}

func TestEngineString(t *testing.T) {
	assert.Equal(t, "chrome", EnginePrimary.String())
	assert.Equal(t, "firefox", EngineSecondary.String())
	assert.Equal(t, "edge", EngineTertiary.String())
	assert.Equal(t, "safari", EngineNative.String())
	assert.Equal(t, "Engine(42)", Engine(42).String())
	assert.False(t, Engine(42).Valid())

	for _, e := range Engines() {
		assert.True(t, e.Valid(), e.String())
		parsed, err := ParseEngine(e.String())
		require.NoError(t, err)
		assert.Equal(t, e, parsed)
	}
}

func TestEnginePlaywrightMapping(t *testing.T) {
	assert.Equal(t, "chromium", EnginePrimary.PlaywrightBrowser())
	assert.Equal(t, "firefox", EngineSecondary.PlaywrightBrowser())
	assert.Equal(t, "chromium", EngineTertiary.PlaywrightBrowser())
	assert.Equal(t, "webkit", EngineNative.PlaywrightBrowser())

	assert.Equal(t, "msedge", EngineTertiary.Channel())
	assert.Empty(t, EnginePrimary.Channel())
}

func TestCheckPlatform(t *testing.T) {
	assert.NoError(t, EnginePrimary.CheckPlatform("linux"))
	assert.NoError(t, EngineSecondary.CheckPlatform("windows"))
	assert.NoError(t, EngineNative.CheckPlatform("darwin"))

	err := EngineNative.CheckPlatform("linux")
	require.Error(t, err)

	var mismatch *PlatformMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, EngineNative, mismatch.Engine)
	assert.Equal(t, "linux", mismatch.Platform)
	assert.Equal(t, "darwin", mismatch.Required)
	assert.Contains(t, err.Error(), "only supported on darwin")
}
