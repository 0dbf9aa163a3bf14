package runware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeServer speaks the Runware wire protocol over an httptest server.
type fakeServer struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	// sessionID is issued when a client authenticates without a session.
	sessionID string
	// rejectAuth, when set, answers every handshake with an error frame.
	rejectAuth string
	// rejectAuthItem, when set, answers every handshake with an
	// authentication item flagged as an error.
	rejectAuthItem string
	// authGate, when set, delays every handshake acknowledgement until closed.
	authGate chan struct{}

	mu       sync.Mutex
	accepted int
	auths    []AuthRequest
	conns    []*serverConn
	tasks    chan serverTask
}

type serverConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (sc *serverConn) send(t *testing.T, frame interface{}) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.ws.WriteJSON(frame); err != nil {
		t.Logf("fake server write: %v", err)
	}
}

type serverTask struct {
	conn *serverConn
	req  ImageInferenceRequest
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		t:         t,
		sessionID: "S1",
		tasks:     make(chan serverTask, 16),
	}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := fs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sc := &serverConn{ws: ws}

	fs.mu.Lock()
	fs.accepted++
	fs.conns = append(fs.conns, sc)
	fs.mu.Unlock()

	defer ws.Close()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			fs.t.Logf("fake server: bad frame %s", data)
			continue
		}
		for _, raw := range elems {
			var head struct {
				TaskType string `json:"taskType"`
			}
			_ = json.Unmarshal(raw, &head)

			switch head.TaskType {
			case TaskTypeAuthentication:
				var req AuthRequest
				_ = json.Unmarshal(raw, &req)
				fs.mu.Lock()
				fs.auths = append(fs.auths, req)
				fs.mu.Unlock()
				fs.answerAuth(sc, req)
			case TaskTypeImageInference:
				var req ImageInferenceRequest
				_ = json.Unmarshal(raw, &req)
				fs.tasks <- serverTask{conn: sc, req: req}
			}
		}
	}
}

func (fs *fakeServer) answerAuth(sc *serverConn, req AuthRequest) {
	if fs.authGate != nil {
		<-fs.authGate
	}
	if fs.rejectAuth != "" {
		sc.send(fs.t, map[string]interface{}{
			"error":        true,
			"errorMessage": fs.rejectAuth,
		})
		return
	}
	if fs.rejectAuthItem != "" {
		sc.send(fs.t, map[string]interface{}{
			"data": []map[string]interface{}{
				{"taskType": TaskTypeAuthentication, "error": true, "errorMessage": fs.rejectAuthItem},
			},
		})
		return
	}

	session := req.ConnectionSessionUUID
	if session == "" {
		session = fs.sessionID
	}
	sc.send(fs.t, map[string]interface{}{
		"data": []map[string]interface{}{
			{"taskType": TaskTypeAuthentication, "connectionSessionUUID": session},
		},
	})
}

// nextTask waits for the next job frame the client sends.
func (fs *fakeServer) nextTask() serverTask {
	fs.t.Helper()
	select {
	case task := <-fs.tasks:
		return task
	case <-time.After(5 * time.Second):
		fs.t.Fatal("timed out waiting for a task frame")
		return serverTask{}
	}
}

func (fs *fakeServer) reply(task serverTask, items ...map[string]interface{}) {
	task.conn.send(fs.t, map[string]interface{}{"data": items})
}

// dropAll closes every server-side socket without a close frame.
func (fs *fakeServer) dropAll() {
	fs.mu.Lock()
	conns := fs.conns
	fs.conns = nil
	fs.mu.Unlock()

	for _, sc := range conns {
		_ = sc.ws.Close()
	}
}

// requireNoTask fails if the client has sent a job frame.
func (fs *fakeServer) requireNoTask() {
	fs.t.Helper()
	select {
	case task := <-fs.tasks:
		fs.t.Fatalf("unexpected task frame %s", task.req.TaskUUID)
	default:
	}
}

func (fs *fakeServer) connectionCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.accepted
}

func (fs *fakeServer) authRequests() []AuthRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]AuthRequest(nil), fs.auths...)
}

func (fs *fakeServer) requireAuthCount(n int) {
	fs.t.Helper()
	require.Eventually(fs.t, func() bool {
		return len(fs.authRequests()) == n
	}, 5*time.Second, 5*time.Millisecond)
}
