package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/lintang-b-s/bikestats/pkg/util"
)

// User. one websocket connection streaming fixes into a session
type User struct {
	io   sync.Mutex
	conn io.ReadWriteCloser

	id        uint
	sessionID string
	hub       *Hub
	onRemove  func()
}

// OnRemove sets fn to run once the hub drops the user, after its connection is closed.
// fn runs right away when the user is already gone.
func (u *User) OnRemove(fn func()) {
	u.hub.mu.Lock()
	defer u.hub.mu.Unlock()
	if _, ok := u.hub.ns[u.id]; !ok {
		fn()
		return
	}
	u.onRemove = fn
}

func (u *User) ID() uint {
	return u.id
}

func (u *User) SessionID() string {
	return u.sessionID
}

// readRequest returns nil, nil for control frames.
func (u *User) readRequest() (*fixRequest, error) {
	u.io.Lock()
	defer u.io.Unlock()

	h, r, err := wsutil.NextReader(u.conn, ws.StateServerSide)
	if err != nil {
		return nil, err
	}
	if h.OpCode.IsControl() {
		return nil, wsutil.ControlFrameHandler(u.conn, ws.StateServerSide)(h, r)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	req := &fixRequest{}
	if err := json.Unmarshal(payload, req); err != nil {
		return req, errBadFrame{err}
	}
	return req, nil
}

type errBadFrame struct{ err error }

func (e errBadFrame) Error() string { return "bad frame: " + e.err.Error() }

/*
HandleFix. read one text frame holding a fix, feed it into the session and reply with the stats.
a malformed or invalid fix gets an error frame and keeps the connection open,
a closed connection or a removed session ends it.
*/
func (u *User) HandleFix(ctx context.Context) error {
	req, err := u.readRequest()
	var badFrame errBadFrame
	if errors.As(err, &badFrame) {
		return u.writeError(http.StatusBadRequest, badFrame.Error())
	}
	if err != nil {
		u.conn.Close()
		return err
	}
	if req == nil {
		return nil
	}

	if err := validateRequest(req); err != nil {
		return u.writeError(http.StatusBadRequest, err.Error())
	}

	stats, err := u.hub.sessionService.AddFix(ctx, u.sessionID, req.ToFix())
	if err != nil {
		status := StatusCode(err)
		if werr := u.writeError(status, err.Error()); werr != nil {
			return werr
		}
		if errors.Is(util.ErrorCode(err), util.ErrNotFound) {
			u.conn.Close()
			return err
		}
		return nil
	}
	return u.write(envelope{"data": stats})
}

func (u *User) writeError(status int, message string) error {
	return u.write(envelope{"error": newErrorBody(status, message).Error})
}

func (u *User) write(x interface{}) error {
	w := wsutil.NewWriter(u.conn, ws.StateServerSide, ws.OpText)
	encoder := json.NewEncoder(w)

	u.io.Lock()
	defer u.io.Unlock()

	if err := encoder.Encode(x); err != nil {
		return err
	}

	return w.Flush()
}

// Hub. open websocket connections
type Hub struct {
	mu             sync.RWMutex
	seq            uint
	us             []*User
	ns             map[uint]*User
	sessionService SessionService
}

func NewHub(sessionService SessionService) *Hub {
	return &Hub{
		ns:             make(map[uint]*User),
		us:             make([]*User, 0),
		sessionService: sessionService,
	}
}

func (h *Hub) Register(conn io.ReadWriteCloser, sessionID string) *User {
	user := &User{
		hub:       h,
		conn:      conn,
		sessionID: sessionID,
	}

	h.mu.Lock()
	user.id = h.seq
	h.ns[user.id] = user
	h.us = append(h.us, user)

	h.seq++
	h.mu.Unlock()

	return user
}

// Remove closes the user connection and forgets it.
func (h *Hub) Remove(user *User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ns[user.id]; !ok {
		return
	}
	delete(h.ns, user.id)

	i := sort.Search(len(h.us), func(i int) bool {
		return h.us[i].id >= user.id
	})

	newUs := make([]*User, len(h.us)-1)
	copy(newUs[:i], h.us[:i])
	copy(newUs[i:], h.us[i+1:])
	h.us = newUs

	user.conn.Close()
	if user.onRemove != nil {
		user.onRemove()
	}
}

func (h *Hub) RemoveAllUser() {
	h.mu.RLock()
	users := make([]*User, len(h.us))
	copy(users, h.us)
	h.mu.RUnlock()

	for _, user := range users {
		h.Remove(user)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.us)
}
