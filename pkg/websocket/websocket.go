package websocketPkg

import (
	"PupilMeter/internal/entity"
	"errors"
	"fmt"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"os"
	"sync"
	"time"
)

var ErrNotConnected = errors.New("not connected to landmark service")

// IWebsocket forwards encoded camera frames to the external face landmark
// extractor and returns the landmarks it found.
type IWebsocket interface {
	ExtractLandmarks(frame []byte) (*entity.Frame, error)
	IsConnected() bool
	Reconnect() error
	CloseConnections()
}

type landmarkPoint struct {
	Index      int     `json:"index"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

type landmarkResponse struct {
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Landmarks []landmarkPoint `json:"landmarks"`
	Error     string          `json:"error,omitempty"`
}

type webSocketClient struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	log          *logrus.Logger
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewLandmarkClient(log *logrus.Logger) IWebsocket {
	client := newClient(getWebSocketURL(), log)
	go client.connectInBackground()
	return client
}

func newClient(url string, log *logrus.Logger) *webSocketClient {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &webSocketClient{
		url:          url,
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

func (c *webSocketClient) connectInBackground() {
	if err := c.Reconnect(); err != nil {
		c.log.Warnf("Initial connection to landmark service failed: %v. Will retry on demand.", err)
	} else {
		c.log.Info("Successfully connected to landmark service")
	}
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *webSocketClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	if c.url == "" {
		return fmt.Errorf("landmark service URL not configured")
	}

	c.log.Infof("Connecting to landmark service at %s", c.url)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return nil
}

func (c *webSocketClient) CloseConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping failed for landmark service, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *webSocketClient) getConnection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// ExtractLandmarks sends one encoded image and waits for its landmarks. The
// whole exchange holds the connection lock so replies cannot interleave.
func (c *webSocketClient) ExtractLandmarks(frame []byte) (*entity.Frame, error) {
	if _, err := c.getConnection(); err != nil {
		if err := c.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to landmark service: %w", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn := c.conn
	if conn == nil {
		return nil, ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	c.log.Debugf("Sending frame of size: %d bytes", len(frame))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.conn = nil
		conn.Close()
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.conn = nil
		conn.Close()
		return nil, fmt.Errorf("error reading landmark message: %w", err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	return decodeLandmarks(message)
}

func decodeLandmarks(message []byte) (*entity.Frame, error) {
	var resp landmarkResponse
	if err := jsoniter.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("error unmarshaling landmark response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("landmark service error: %s", resp.Error)
	}

	set := make(entity.LandmarkSet, len(resp.Landmarks))
	for _, p := range resp.Landmarks {
		set[p.Index] = entity.Landmark{X: p.X, Y: p.Y, Z: p.Z, Visibility: p.Visibility}
	}

	return &entity.Frame{
		Landmarks: set,
		Width:     resp.Width,
		Height:    resp.Height,
	}, nil
}

func getWebSocketURL() string {
	url := os.Getenv("LANDMARK_SERVICE_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/landmarks/ws"
	}
	return url
}
