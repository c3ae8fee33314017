package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		development bool
		level       string
		expectErr   bool
	}{
		{name: "production info", level: "info"},
		{name: "development debug", development: true, level: "debug"},
		{name: "bad level", level: "loud", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.development, tt.level)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.level == "debug", log.Core().Enabled(zap.DebugLevel))
			assert.True(t, log.Core().Enabled(zap.InfoLevel))
		})
	}
}
