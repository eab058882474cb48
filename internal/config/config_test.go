package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "health-agent", cfg.ServiceName)
	assert.Equal(t, ":8004", cfg.Addr())
	assert.Equal(t, StoreBackendMemory, cfg.StoreBackend)
	assert.True(t, cfg.DeletedSessionsReadable)
	assert.Equal(t, 100, cfg.SessionHistoryLimit)
	assert.Equal(t, "default_health_user", cfg.DefaultUserID)
	assert.Equal(t, 60*time.Second, cfg.CapabilityTimeout)
	assert.Equal(t, 15*time.Minute, cfg.PendingTxTTL)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "mongo without uri",
			env:     map[string]string{"OPENAI_API_KEY": "k", "STORE_BACKEND": "mongo"},
			wantErr: "MONGO_URI",
		},
		{
			name:    "unknown store backend",
			env:     map[string]string{"OPENAI_API_KEY": "k", "STORE_BACKEND": "sqlite"},
			wantErr: "unsupported STORE_BACKEND",
		},
		{
			name:    "auth without key material",
			env:     map[string]string{"OPENAI_API_KEY": "k", "AUTH_ENABLED": "true"},
			wantErr: "AUTH_JWT_SECRET",
		},
		{
			name:    "redis without url",
			env:     map[string]string{"OPENAI_API_KEY": "k", "PENDING_TX_BACKEND": "redis"},
			wantErr: "REDIS_URL",
		},
		{
			name:    "gemini without key",
			env:     map[string]string{"LLM_PROVIDER": "gemini"},
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:    "missing openai key",
			env:     map[string]string{},
			wantErr: "OPENAI_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
