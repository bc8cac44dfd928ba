package handlerUtil

import (
	"PupilMeter/internal/api/measurement"
	"PupilMeter/pkg/response"
	"PupilMeter/pkg/utils"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func handle(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := New(logger)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return h.Handle(c, "req-1", err, c.Path(), "test")
	})

	resp, testErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, testErr)

	var body map[string]interface{}
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleMapsKnownErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"session not found", measurement.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"no measurement", measurement.ErrNoMeasurement, http.StatusNotFound, "NO_MEASUREMENT"},
		{"invalid frame", measurement.ErrInvalidFrame, http.StatusBadRequest, "INVALID_FRAME"},
		{"session limit", measurement.ErrTooManySessions, http.StatusTooManyRequests, "TOO_MANY_SESSIONS"},
		{"wrapped landmark failure", fmt.Errorf("%w: timeout", measurement.ErrLandmarkServiceUnavailable), http.StatusServiceUnavailable, "LANDMARK_SERVICE_UNAVAILABLE"},
		{"not an image", utils.ErrNotAnImage, http.StatusBadRequest, "INVALID_FILE_TYPE"},
		{"internal", fmt.Errorf("%w: db down", measurement.ErrInternalServerError), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := handle(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestHandleGenericResponseError(t *testing.T) {
	status, body := handle(t, response.NewError(http.StatusConflict, "already running"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already running", body["error"])
}

func TestHandleUnexpectedErrorHidesDetails(t *testing.T) {
	status, body := handle(t, errors.New("secret connection string"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "An unexpected error occurred", body["error"])
	assert.Equal(t, "req-1", body["trace_id"])
}
