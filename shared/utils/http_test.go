package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/pkg/apierrors"
)

func TestRespondWithData(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithData(w, http.StatusCreated, map[string]string{"id": "tkt_1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
}

func TestRespondWithError(t *testing.T) {
	t.Run("workflow error keeps its status and kind", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondWithError(w, apierrors.AlreadyAccepted("tkt_1"))

		assert.Equal(t, http.StatusConflict, w.Code)

		var env Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, apierrors.KindAlreadyAccepted, env.Error.Kind)
	})

	t.Run("plain error becomes an internal failure", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondWithError(w, errors.New("unexpected"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var env Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		require.NotNil(t, env.Error)
		assert.Equal(t, apierrors.KindInternal, env.Error.Kind)
	})
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("UTILS_TEST_KEY", "set")
	assert.Equal(t, "set", GetEnvOrDefault("UTILS_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("UTILS_TEST_KEY_MISSING", "fallback"))
}
