package debuglog

import (
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Configure(t *testing.T) {
	tests := []struct {
		name     string
		options  Options
		contains []string
		excludes []string
	}{
		{
			name:    "default",
			options: Options{},
			contains: []string{
				" level=info ",
				` msg="Answered query"`,
				" sums=3",
			},
		},
		{
			name:     "default/UTC_timestamp",
			options:  Options{},
			contains: []string{` UTC"`},
		},
		{
			name:     "default/short_caller",
			options:  Options{},
			contains: []string{` file="debuglog/setup_test.go:`},
			excludes: []string{" func="},
		},
		{
			name:     "warn_level_drops_info",
			options:  Options{Level: "warn"},
			excludes: []string{"Answered query"},
		},
		{
			name:     "forceColors",
			options:  Options{ForceColors: true},
			contains: []string{"\x1b[36mINFO\x1b[0m"},
		},
	}

	// Ensure CLICOLOR_FORCE isn't set, as it would cause the test to fail.
	value, isSet := os.LookupEnv("CLICOLOR_FORCE")
	if isSet {
		assert.NoError(t, os.Unsetenv("CLICOLOR_FORCE"))
		defer func() {
			assert.NoError(t, os.Setenv("CLICOLOR_FORCE", value))
		}()
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)
			var buf strings.Builder
			options := test.options
			options.Logger = logrus.New()
			options.Output = &buf
			logger, err := Configure(options)
			require.NoError(t, err)
			logger.WithField("sums", 3).Info("Answered query")

			output := buf.String()
			for _, needle := range test.contains {
				assert.Contains(output, needle)
			}
			for _, needle := range test.excludes {
				assert.NotContains(output, needle)
			}
		})
	}
}

func Test_ConfigureBadLevel(t *testing.T) {
	_, err := Configure(Options{Level: "loud", Logger: logrus.New()})
	assert.Error(t, err)
}

func Test_shortCaller(t *testing.T) {
	_, thisFile, line, _ := runtime.Caller(0)
	function, file := shortCaller(&runtime.Frame{File: thisFile, Line: line, Function: "debuglog.Test_shortCaller"})
	assert.Empty(t, function)
	assert.True(t, strings.HasPrefix(file, "debuglog/setup_test.go:"), file)
}

func Test_Discard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() { logger.Info("dropped") })
}
