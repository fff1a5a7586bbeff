// Copyright 2025 OpenMediaKit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogConfigGetter(t *testing.T) {
	tests := []struct {
		name      string
		cfg       LogConfig
		wantLevel zapcore.Level
	}{
		{
			name:      "debug console",
			cfg:       LogConfig{Level: "debug", Format: "console"},
			wantLevel: zapcore.DebugLevel,
		},
		{
			name:      "error json",
			cfg:       LogConfig{Level: "error", Format: "json"},
			wantLevel: zapcore.ErrorLevel,
		},
		{
			name:      "bad level falls back to info",
			cfg:       LogConfig{Level: "nope", Format: "console"},
			wantLevel: zapcore.InfoLevel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantLevel, tt.cfg.getLevel().Level())
			require.NotNil(t, tt.cfg.getEncoder())
			require.NotNil(t, tt.cfg.getSyncer())
		})
	}
}

func TestSetupReplacesGlobalLogger(t *testing.T) {
	old := GetGlobalLogger()
	Setup(&LogConfig{Level: "warn", Format: "json"})
	require.NotSame(t, old, GetGlobalLogger())
	require.False(t, GetGlobalLogger().Core().Enabled(zap.InfoLevel))
	require.True(t, GetGlobalLogger().Core().Enabled(zap.WarnLevel))

	Setup(&LogConfig{Level: "info", Format: "console"})
}
