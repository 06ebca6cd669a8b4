// Package rtsp pulls the camera's local encoder stream and hands raw RTP
// packets to the maintenance channel so installers can see what the head is
// pointed at while they adjust it.
package rtsp

import (
	"fmt"
	"sync"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/description"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/pion/rtp"
	"go.uber.org/zap"
)

const maxReconnectDelay = 30 * time.Second

// Client maintains a pull session against the onboard encoder's RTSP
// server and republishes the video RTP packets on a channel. It reconnects
// with exponential backoff when the encoder restarts.
type Client struct {
	url     string
	log     *zap.Logger
	rtpChan chan []byte
	stopCh  chan struct{}

	mu        sync.Mutex
	client    *gortsplib.Client
	connected bool
	stopped   bool
}

// NewClient validates the stream URL and prepares a client. No connection
// is made until Connect.
func NewClient(rtspURL string, log *zap.Logger) (*Client, error) {
	if _, err := base.ParseURL(rtspURL); err != nil {
		return nil, fmt.Errorf("rtsp: bad url %q: %w", rtspURL, err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		url:     rtspURL,
		log:     log,
		rtpChan: make(chan []byte, 500),
		stopCh:  make(chan struct{}),
	}, nil
}

// Connect establishes the RTSP session and starts streaming.
func (c *Client) Connect() error {
	return c.connect()
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	client := &gortsplib.Client{
		// Interleaved TCP: the encoder is on-device, no point in UDP.
		Transport: func() *gortsplib.Transport {
			t := gortsplib.TransportTCP
			return &t
		}(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		OnDecodeError: func(err error) {
			c.log.Debug("rtsp decode error", zap.Error(err))
		},
	}

	u, err := base.ParseURL(c.url)
	if err != nil {
		return err
	}

	if err := client.Start(u.Scheme, u.Host); err != nil {
		return fmt.Errorf("rtsp: start: %w", err)
	}

	desc, _, err := client.Describe(u)
	if err != nil {
		client.Close()
		return fmt.Errorf("rtsp: describe: %w", err)
	}

	videoMedia, videoFormat := findVideoMedia(desc)
	if videoFormat == nil {
		client.Close()
		return fmt.Errorf("rtsp: no video media in %q", c.url)
	}

	if _, err := client.Setup(desc.BaseURL, videoMedia, 0, 0); err != nil {
		client.Close()
		return fmt.Errorf("rtsp: setup: %w", err)
	}

	client.OnPacketRTPAny(func(media *description.Media, forma format.Format, pkt *rtp.Packet) {
		buf, err := pkt.Marshal()
		if err != nil {
			return
		}

		packet := make([]byte, len(buf))
		copy(packet, buf)

		select {
		case c.rtpChan <- packet:
		case <-c.stopCh:
		default:
			// Viewer is behind; drop rather than stall the session.
		}
	})

	if _, err := client.Play(nil); err != nil {
		client.Close()
		return fmt.Errorf("rtsp: play: %w", err)
	}

	c.client = client
	c.connected = true
	c.log.Info("rtsp stream connected", zap.String("url", c.url))

	go c.monitorConnection()

	return nil
}

// findVideoMedia prefers H264/H265 and falls back to the first video media.
func findVideoMedia(desc *description.Session) (*description.Media, format.Format) {
	for _, media := range desc.Medias {
		for _, f := range media.Formats {
			switch f.(type) {
			case *format.H264, *format.H265:
				return media, f
			}
		}
	}
	for _, media := range desc.Medias {
		if media.Type == description.MediaTypeVideo && len(media.Formats) > 0 {
			return media, media.Formats[0]
		}
	}
	return nil, nil
}

// monitorConnection watches for disconnection and reconnects with backoff.
func (c *Client) monitorConnection() {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	if client == nil {
		return
	}

	err := client.Wait()

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	select {
	case <-c.stopCh:
		return
	default:
	}

	if err != nil {
		c.log.Warn("rtsp connection lost", zap.Error(err))
	}

	for attempt := 1; ; attempt++ {
		delay := time.Duration(1<<uint(attempt-1)) * time.Second
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
		c.log.Info("rtsp reconnecting",
			zap.Int("attempt", attempt), zap.Duration("delay", delay))

		select {
		case <-c.stopCh:
			return
		case <-time.After(delay):
		}

		if err := c.connect(); err != nil {
			c.log.Warn("rtsp reconnect failed", zap.Error(err))
			continue
		}
		return
	}
}

// RTPChannel returns the channel carrying marshalled RTP packets.
func (c *Client) RTPChannel() <-chan []byte {
	return c.rtpChan
}

// Connected reports whether the pull session is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears the session down and stops reconnecting.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.connected = false
	client := c.client
	c.mu.Unlock()

	close(c.stopCh)
	close(c.rtpChan)

	if client != nil {
		client.Close()
	}
	return nil
}
