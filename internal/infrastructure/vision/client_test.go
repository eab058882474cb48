package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/health-agent/internal/domain/capability"
)

// smallest valid PNG header plus IHDR is enough for sniffing
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func classifierServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/classify", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req classifyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(classifyResponse{
			Success:    true,
			Label:      "dumbbell",
			Title:      "Adjustable Dumbbell",
			Confidence: 0.93,
			Metadata:   map[string]any{"mime_type": req.MimeType, "is_url": req.IsURL},
		})
	}))
}

func TestClassify_InlineImageIsCached(t *testing.T) {
	var calls int32
	srv := classifierServer(t, &calls)
	defer srv.Close()

	client, err := NewClient(srv.URL, "secret", 8, 5*time.Second, zerolog.Nop())
	require.NoError(t, err)

	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	for i := 0; i < 2; i++ {
		res, err := client.Classify(context.Background(), capability.ImageInput{Data: payload})
		require.NoError(t, err)
		assert.Equal(t, "Adjustable Dumbbell", res.DisplayName())
		assert.Equal(t, "image/png", res.Extra["mime_type"])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClassify_URLPassesThrough(t *testing.T) {
	var calls int32
	srv := classifierServer(t, &calls)
	defer srv.Close()

	client, err := NewClient(srv.URL, "secret", 0, 5*time.Second, zerolog.Nop())
	require.NoError(t, err)

	res, err := client.Classify(context.Background(), capability.ImageInput{Data: "https://example.com/a.jpg", IsURL: true})
	require.NoError(t, err)
	assert.Equal(t, true, res.Extra["is_url"])
}

func TestClassify_RejectsNonImage(t *testing.T) {
	var calls int32
	srv := classifierServer(t, &calls)
	defer srv.Close()

	client, err := NewClient(srv.URL, "secret", 8, 5*time.Second, zerolog.Nop())
	require.NoError(t, err)

	text := base64.StdEncoding.EncodeToString([]byte("just some text, not an image"))
	_, err = client.Classify(context.Background(), capability.ImageInput{Data: text})
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = client.Classify(context.Background(), capability.ImageInput{Data: "%%%not-base64"})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestClassify_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", 8, 5*time.Second, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.Classify(context.Background(), capability.ImageInput{Data: "https://example.com/a.jpg", IsURL: true})
	assert.Error(t, err)
}
