package monitor

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const streamEndpoint = "/monitor/stream"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server exposes the hub over websockets. Clients connect to
// /monitor/stream, optionally with ?level= to choose how much they want
// to see, and receive one text message per log line.
type Server struct {
	hub    *Hub
	server *http.Server
}

// NewServer creates Server instances
func NewServer(hub *Hub, addr string) *Server {
	router := mux.NewRouter()
	s := &Server{
		hub: hub,
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
	}
	router.HandleFunc(streamEndpoint, s.stream)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return s
}

// Listen starts the server
func (s *Server) Listen() error {
	return s.server.ListenAndServe()
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	maxLevel := logrus.InfoLevel
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, parseErr := logrus.ParseLevel(raw)
		if parseErr != nil {
			http.Error(w, parseErr.Error(), http.StatusBadRequest)
			return
		}
		maxLevel = parsed
	}
	conn, upgradeErr := upgrader.Upgrade(w, r, nil)
	if upgradeErr != nil {
		logrus.Errorf("Failed to upgrade log monitor connection: %v", upgradeErr)
		return
	}
	id := s.hub.Attach(&wsWriter{conn: conn}, maxLevel)
	logrus.Infof("Log monitor %s attached at level %s", id, maxLevel)

	// block until the subscriber goes away, everything it ever sends is
	// ignored
	for {
		if _, _, readErr := conn.ReadMessage(); readErr != nil {
			break
		}
	}
	s.hub.Detach(id)
	conn.Close()
	logrus.Infof("Log monitor %s detached", id)
}

type wsWriter struct {
	conn *websocket.Conn
}

func (w *wsWriter) Write(p []byte) (int, error) {
	if writeErr := w.conn.WriteMessage(websocket.TextMessage, p); writeErr != nil {
		return 0, writeErr
	}
	return len(p), nil
}
