package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/therealtin05/SmartParking/internal/app"
	"github.com/therealtin05/SmartParking/internal/config"
	"github.com/therealtin05/SmartParking/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// Time allowed to write a message to the peer.
const writeWait = 10 * time.Second

type Controller struct {
	Dispatcher *app.Dispatcher
	readLimit  int64
	pingPeriod time.Duration
}

func NewController(d *app.Dispatcher, cfg *config.Config) *Controller {
	pingPeriod := cfg.PingPeriod
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &Controller{
		Dispatcher: d,
		readLimit:  cfg.ReadLimit,
		pingPeriod: pingPeriod,
	}
}

// WsSignalConn pairs the websocket with a buffered outbound channel drained
// by the write pump. TrySend never blocks: a full channel means the peer is
// too slow and the frame is dropped at this layer.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the HTTP request and runs the connection's pumps.
// Every inbound frame is applied synchronously in the read loop, so a single
// connection's messages are processed strictly in arrival order.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("remote", ws.RemoteAddr().String()).Msg("client connected")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	peer := app.NewPeer(conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, cancel, conn)
	go ctl.readPump(ctx, peer, conn)
}
