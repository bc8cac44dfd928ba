package measurementHandler

import (
	"PupilMeter/internal/api/measurement"
	"PupilMeter/internal/middleware"
	contextPkg "PupilMeter/pkg/context"
	"PupilMeter/pkg/log"
	"PupilMeter/pkg/response"
	"errors"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
	"time"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
)

type wsError struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// handleWebSocket streams frames for one session. Text messages carry a
// landmark frame as JSON; binary messages carry an encoded image that is
// forwarded to the landmark extractor. Each frame is answered with one
// frame result.
func (h *MeasurementHandler) handleWebSocket(c *websocket.Conn) {
	sessionID := c.Params("id")
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	ctx := contextPkg.WithSessionID(contextPkg.WithRequestID(context.Background(), requestID), sessionID)

	fields := log.Fields{
		"request_id": requestID,
		"session_id": sessionID,
	}

	if _, err := h.measurementService.GetStatus(ctx, sessionID); err != nil {
		h.writeError(c, err)
		return
	}

	h.log.WithFields(fields).Info("Measurement WebSocket client connected")
	defer h.log.WithFields(fields).Info("Measurement WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.WithFields(fields).Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			h.log.WithFields(fields).Errorf("Error setting read deadline: %v", err)
			return
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithFields(fields).Warnf("Measurement WebSocket error: %v", err)
			}
			return
		}

		var reply interface{}
		switch messageType {
		case websocket.TextMessage:
			reply, err = h.processTextFrame(ctx, sessionID, message)
		case websocket.BinaryMessage:
			reply, err = h.processImageFrame(ctx, sessionID, message)
		default:
			continue
		}

		if err != nil {
			if !h.writeError(c, err) {
				return
			}
			if errors.Is(err, measurement.ErrSessionNotFound) {
				return
			}
			continue
		}

		if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			h.log.WithFields(fields).Errorf("Error setting write deadline: %v", err)
			return
		}
		if err := c.WriteJSON(reply); err != nil {
			h.log.WithFields(fields).Errorf("Error writing frame result: %v", err)
			return
		}
	}
}

func (h *MeasurementHandler) processTextFrame(ctx context.Context, sessionID string, message []byte) (interface{}, error) {
	var req measurement.FrameRequest
	if err := jsoniter.Unmarshal(message, &req); err != nil {
		return nil, measurement.ErrInvalidFrame
	}
	if err := h.validator.Struct(req); err != nil {
		return nil, measurement.ErrInvalidFrame
	}

	result, err := h.measurementService.ProcessFrame(ctx, sessionID, req.ToEntity())
	if err != nil {
		return nil, err
	}
	return measurement.NewFrameResponse(result), nil
}

func (h *MeasurementHandler) processImageFrame(ctx context.Context, sessionID string, message []byte) (interface{}, error) {
	result, err := h.measurementService.ProcessImage(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}
	return measurement.NewFrameResponse(result), nil
}

// writeError reports err to the client and returns false when the connection
// is no longer writable.
func (h *MeasurementHandler) writeError(c *websocket.Conn, err error) bool {
	payload := wsError{Error: "internal server error"}

	if code, msg, ok := response.StatusOf(err); ok {
		payload = wsError{Error: msg, Code: code}
	}

	if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return false
	}
	if writeErr := c.WriteJSON(payload); writeErr != nil {
		h.log.Errorf("Error sending error response: %v", writeErr)
		return false
	}
	return true
}
