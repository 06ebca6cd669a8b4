// Package server ties the transports together: the ONVIF SOAP endpoints on
// one side and the maintenance WebSocket (joystick control plus raw RTP
// preview) on the other, both driving the same PTZ adapter.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"onvif-camd/internal/onvif"
	"onvif-camd/internal/protocol"
	"onvif-camd/internal/ptz"
	"onvif-camd/internal/rtsp"
)

// Auto-stop timeout for joystick moves: a crashed maintenance client must
// not leave the head spinning.
const wsMoveTimeoutSec = 10

// Config for the server
type Config struct {
	ListenAddr string
	DeviceInfo onvif.DeviceInfo
}

// Server is the camera control daemon's HTTP front end.
type Server struct {
	cfg     Config
	log     *zap.Logger
	adapter *ptz.Adapter
	presets *onvif.PresetStore
	relay   *rtsp.Client

	ptzSvc *onvif.PTZService
	devSvc *onvif.DeviceService

	clients   map[*Client]bool
	clientsMu sync.RWMutex
	upgrader  websocket.Upgrader

	httpSrv *http.Server
}

// Client represents a connected maintenance WebSocket client
type Client struct {
	conn    *websocket.Conn
	server  *Server
	send    chan []byte
	rtpChan chan []byte // per-client RTP buffer
	mu      sync.Mutex
	closed  bool
}

// New creates a server around an initialized adapter. relay may be nil when
// no encoder stream is configured.
func New(cfg Config, adapter *ptz.Adapter, presets *onvif.PresetStore, relay *rtsp.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		cfg:     cfg,
		log:     log,
		adapter: adapter,
		presets: presets,
		relay:   relay,
		ptzSvc:  onvif.NewPTZService(adapter, presets, log.Named("ptz")),
		devSvc:  onvif.NewDeviceService(cfg.DeviceInfo, log.Named("device")),
		clients: make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // camera LAN only, no browser origin policy
			},
		},
	}
}

// Handler returns the HTTP mux serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/onvif/ptz_service", s.ptzSvc)
	mux.Handle("/onvif/device_service", s.devSvc)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start serves HTTP until Stop is called. Blocks.
func (s *Server) Start() error {
	if s.relay != nil {
		go s.broadcastRTP()
	}

	s.httpSrv = &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Handler(),
	}

	s.log.Info("server listening", zap.String("addr", s.cfg.ListenAddr))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// broadcastRTP fans encoder RTP packets out to every connected client.
func (s *Server) broadcastRTP() {
	for packet := range s.relay.RTPChannel() {
		s.clientsMu.RLock()
		for client := range s.clients {
			select {
			case client.rtpChan <- packet:
			default:
				// Client's buffer full, drop packet for this client
			}
		}
		s.clientsMu.RUnlock()
	}
}

// Stop shuts the HTTP listener down gracefully and closes every client.
func (s *Server) Stop() {
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.log.Warn("http shutdown", zap.Error(err))
		}
	}

	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
	}
	s.clientsMu.Unlock()

	if s.relay != nil {
		s.relay.Close()
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:    conn,
		server:  s,
		send:    make(chan []byte, 256),
		rtpChan: make(chan []byte, 500),
	}

	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()

	go client.writePump()
	go client.readPump()

	client.sendStatus()
}

func (c *Client) sendStatus() {
	status := protocol.StatusPayload{
		StreamConnected:  c.server.relay != nil && c.server.relay.Connected(),
		ContinuousActive: c.server.adapter.ContinuousActive(),
	}
	if pos, err := c.server.adapter.Status(); err == nil {
		status.PanDeg = pos.PanDeg
		status.TiltDeg = pos.TiltDeg
	}
	c.sendMessage(protocol.TypeStatus, status)
}

func (c *Client) sendMessage(msgType string, payload any) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		c.server.log.Warn("message encode failed", zap.Error(err))
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.server.log.Warn("message marshal failed", zap.Error(err))
		return
	}

	select {
	case c.send <- data:
	default:
		c.server.log.Debug("client send buffer full, dropping message")
	}
}

func (c *Client) sendError(code string, err error) {
	c.sendMessage(protocol.TypeError, protocol.ErrorPayload{
		Code:    code,
		Message: err.Error(),
	})
}

func (c *Client) readPump() {
	defer func() {
		c.server.clientsMu.Lock()
		delete(c.server.clients, c)
		c.server.clientsMu.Unlock()
		c.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(protocol.ErrInvalidMessage, err)
		return
	}

	switch msg.Type {
	case protocol.TypePing:
		var payload protocol.PingPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return
		}
		c.sendMessage(protocol.TypePong, protocol.PongPayload{
			ClientTimestamp: payload.Timestamp,
			ServerTimestamp: time.Now().UnixMilli(),
		})

	case protocol.TypePTZCommand:
		var payload protocol.PTZCommandPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return
		}
		c.handlePTZCommand(payload)

	case protocol.TypePTZStop:
		if err := c.server.adapter.Stop(); err != nil {
			c.sendError(protocol.ErrPTZ, err)
		}
		c.sendStatus()

	case protocol.TypePTZPreset:
		var payload protocol.PTZPresetPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return
		}
		c.handlePTZPreset(payload)

	default:
		c.server.log.Debug("unknown message type", zap.String("type", msg.Type))
	}
}

func (c *Client) handlePTZCommand(cmd protocol.PTZCommandPayload) {
	pan := hardwareVelocity(cmd.Pan)
	tilt := hardwareVelocity(cmd.Tilt)

	var err error
	if pan == 0 && tilt == 0 {
		err = c.server.adapter.Stop()
	} else {
		err = c.server.adapter.ContinuousMove(pan, tilt, wsMoveTimeoutSec)
	}
	if err != nil {
		c.sendError(protocol.ErrPTZ, err)
	}
	c.sendStatus()
}

func (c *Client) handlePTZPreset(preset protocol.PTZPresetPayload) {
	var err error
	switch preset.Action {
	case protocol.PresetSave:
		var pos ptz.Position
		if pos, err = c.server.adapter.Status(); err == nil {
			name := preset.Name
			if name == "" {
				name = "Preset"
			}
			_, err = c.server.presets.Set(name,
				ptz.DegreesToPan(pos.PanDeg), ptz.DegreesToTilt(pos.TiltDeg))
		}
	case protocol.PresetRecall:
		var p onvif.Preset
		if p, err = c.server.presets.Get(preset.Token); err == nil {
			err = c.server.adapter.AbsoluteMove(
				ptz.PanToDegrees(p.X), ptz.TiltToDegrees(p.Y), ptz.HardwareSpeed(1))
		}
	case protocol.PresetRemove:
		err = c.server.presets.Remove(preset.Token)
	default:
		c.server.log.Debug("unknown preset action", zap.String("action", preset.Action))
		return
	}

	if err != nil {
		c.sendError(protocol.ErrPreset, err)
	}
	c.sendStatus()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	// The write pump is the only socket writer: JSON control frames, binary
	// RTP preview frames and keepalive pings are all serialized here.
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case packet := <-c.rtpChan:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, packet); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	close(c.send)
}

// hardwareVelocity maps a normalized joystick velocity in [-1, 1] onto the
// signed driver speed range. Zero stays zero so the axis is not driven.
func hardwareVelocity(v float64) int {
	if v == 0 {
		return 0
	}
	speed := ptz.HardwareSpeed(float32(v))
	if v < 0 {
		return -speed
	}
	return speed
}
