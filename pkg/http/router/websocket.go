package router

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/julienschmidt/httprouter"
	"github.com/lintang-b-s/bikestats/pkg/http/router/controllers"
	"github.com/mailru/easygo/netpoll"
	"go.uber.org/zap"
)

// bufferedConn. frames the client sent right after the handshake may already sit in the upgrade reader
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

/*
serveWebsocket. live fix stream of one session.
every text frame is a fix (the same json as POST /api/sessions/:id/fixes), every reply is a stats frame.

the connection fd is registered on the poller as one shot: a ready event handles exactly one frame
and only then re-arms the fd, so fixes reach the session in the order they were sent
and idle streams hold no goroutine.
*/
func (api *API) serveWebsocket(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := p.ByName("id")
	if _, err := api.sessionService.Stats(r.Context(), id, 0); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, rw, hs, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err), zap.String("session", id))
		return
	}
	// the http server deadlines would otherwise cut long lived streams
	_ = conn.SetDeadline(time.Time{})

	api.log.Info("established websocket connection", zap.String("connection name", nameConn(conn)),
		zap.String("protocol", hs.Protocol), zap.String("session", id))

	var stream net.Conn = conn
	if rw != nil && rw.Reader.Buffered() > 0 {
		stream = bufferedConn{Conn: conn, r: rw.Reader}
	}
	user := api.hub.Register(stream, id)

	// the poller only sees the socket, frames already read into the upgrade buffer are handled here first
	for rw != nil && rw.Reader.Buffered() > 0 {
		if err := user.HandleFix(api.ctx); err != nil {
			api.closeStream(user, err)
			return
		}
	}

	desc, err := netpoll.HandleReadOnce(conn)
	if err != nil {
		api.closeStream(user, err)
		return
	}
	user.OnRemove(func() {
		_ = api.poller.Stop(desc)
		_ = desc.Close()
	})

	err = api.poller.Start(desc, func(ev netpoll.Event) {
		if ev&(netpoll.EventReadHup|netpoll.EventHup|netpoll.EventErr|netpoll.EventPollerClosed) != 0 {
			api.closeStream(user, nil)
			return
		}

		go func() {
			if err := user.HandleFix(api.ctx); err != nil {
				api.closeStream(user, err)
				return
			}
			if err := api.poller.Resume(desc); err != nil {
				api.closeStream(user, err)
			}
		}()
	})
	if err != nil {
		api.closeStream(user, err)
	}
}

func (api *API) closeStream(user *controllers.User, err error) {
	api.log.Info("websocket connection closed", zap.Error(err), zap.String("session", user.SessionID()),
		zap.Uint("user", user.ID()))
	api.hub.Remove(user)
}

func nameConn(conn net.Conn) string {
	return conn.LocalAddr().String() + " > " + conn.RemoteAddr().String()
}
