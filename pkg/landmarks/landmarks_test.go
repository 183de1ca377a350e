package landmarks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-gazekey/pkg/eyestate"
	"github.com/teslashibe/go-gazekey/pkg/protocol"
)

func sidecar(t *testing.T, handle func(w http.ResponseWriter, image []byte)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req protocol.FrameData
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		image, err := base64.StdEncoding.DecodeString(req.Image)
		require.NoError(t, err)
		handle(w, image)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPExtractor_Normalized(t *testing.T) {
	srv := sidecar(t, func(w http.ResponseWriter, image []byte) {
		assert.Equal(t, []byte("jpeg"), image)
		json.NewEncoder(w).Encode(protocol.FrameData{
			Landmarks:  []eyestate.Point{{X: 0.25, Y: 0.5}},
			Normalized: true,
			Width:      640,
			Height:     480,
		})
	})

	frame, err := NewHTTPExtractor(srv.URL, 0).Extract(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	require.Len(t, frame, 1)
	assert.Equal(t, eyestate.Point{X: 160, Y: 240}, frame[0])
}

func TestHTTPExtractor_FullMesh(t *testing.T) {
	want := eyestate.LookFrame(eyestate.Right)
	srv := sidecar(t, func(w http.ResponseWriter, _ []byte) {
		json.NewEncoder(w).Encode(protocol.FrameData{Landmarks: want})
	})

	frame, err := NewHTTPExtractor(srv.URL, time.Second).Extract(context.Background(), []byte{1})
	require.NoError(t, err)

	st, err := eyestate.NewClassifier(nil, eyestate.Adaptive).Classify(frame)
	require.NoError(t, err)
	assert.Equal(t, eyestate.Right, st.Direction)
}

func TestHTTPExtractor_NoFace(t *testing.T) {
	srv := sidecar(t, func(w http.ResponseWriter, _ []byte) {
		w.Write([]byte(`{}`))
	})

	_, err := NewHTTPExtractor(srv.URL, 0).Extract(context.Background(), []byte{1})
	assert.ErrorIs(t, err, ErrNoFace)
}

func TestHTTPExtractor_StatusError(t *testing.T) {
	srv := sidecar(t, func(w http.ResponseWriter, _ []byte) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("model not loaded"))
	})

	_, err := NewHTTPExtractor(srv.URL, 0).Extract(context.Background(), []byte{1})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "model not loaded", se.Body)
}

func TestHTTPExtractor_Timeout(t *testing.T) {
	srv := sidecar(t, func(w http.ResponseWriter, _ []byte) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	})

	_, err := NewHTTPExtractor(srv.URL, 20*time.Millisecond).Extract(context.Background(), []byte{1})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoFace)
}

func TestExtractorFunc(t *testing.T) {
	var e Extractor = ExtractorFunc(func(context.Context, []byte) (eyestate.Frame, error) {
		return eyestate.BlinkFrame(), nil
	})
	frame, err := e.Extract(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, frame, eyestate.RequiredLandmarks+4)
}
