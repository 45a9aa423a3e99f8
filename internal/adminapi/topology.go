package adminapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/talkincode/topolive/config"
	"github.com/talkincode/topolive/internal/topology"
	"github.com/talkincode/topolive/internal/webserver"
)

const wsReadLimit = 64 << 10

// clientMessage is a control frame sent by dashboards
type clientMessage struct {
	Action string `mapstructure:"action"`
}

// wsSink delivers hub messages to one websocket connection
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Deliver(ctx context.Context, payload []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, payload)
}

// registerTopologyRoutes registers the snapshot and live update routes
func registerTopologyRoutes() {
	webserver.ApiGET("/topology", getTopology)
	webserver.ApiGET("/topology/ws", streamTopology)
}

func getTopology(c echo.Context) error {
	snapshot, err := GetAppContext(c).Topology().Snapshot(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load topology", err.Error())
	}
	return ok(c, snapshot)
}

// streamTopology upgrades to a websocket and keeps the connection
// subscribed to the hub until the client goes away.
func streamTopology(c echo.Context) error {
	appCtx := GetAppContext(c)
	hub := appCtx.Hub()
	if hub == nil {
		return fail(c, http.StatusServiceUnavailable, "LIVE_UPDATES_UNAVAILABLE", "Live topology updates are not available", nil)
	}
	webCfg := appCtx.Config().Web

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: webCfg.WsOrigins,
	})
	if err != nil {
		zap.L().Warn("topology websocket upgrade failed",
			zap.String("namespace", "web"),
			zap.Error(err),
		)
		return nil
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(wsReadLimit)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	handle, err := hub.Subscribe(ctx, &wsSink{conn: conn})
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "initial topology unavailable")
		return nil
	}
	defer hub.Unsubscribe(handle)

	interval := webCfg.WsPingInterval
	if interval <= 0 {
		interval = config.DefaultWsPingInterval
	}
	go keepAlive(ctx, cancel, conn, interval)

	for {
		var raw map[string]interface{}
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			return nil
		}
		var msg clientMessage
		if err := mapstructure.Decode(raw, &msg); err != nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(msg.Action)) {
		case "refresh":
			if err := hub.RequestRefresh(ctx, handle); err != nil {
				if errors.Is(err, topology.ErrSubscriberNotFound) {
					return nil
				}
				zap.L().Warn("topology refresh failed",
					zap.String("namespace", "web"),
					zap.String("handle", string(handle)),
					zap.Error(err),
				)
			}
		default:
		}
	}
}

// keepAlive pings the client and tears the connection down once it stops answering
func keepAlive(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ctxPing, cancelPing := context.WithTimeout(ctx, interval/2)
			err := conn.Ping(ctxPing)
			cancelPing()
			if err != nil {
				cancel()
				_ = conn.Close(websocket.StatusGoingAway, "client ping failed")
				return
			}
		}
	}
}
