package viewer

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"justapengu.in/livemap/internal/racesim"

	"github.com/gorilla/websocket"
)

const (
	MessageSession   = "session"
	MessagePose      = "pose"
	MessageLap       = "lap"
	MessageStandings = "standings"
	MessageIncident  = "incident"
	MessageFailure   = "failure"
	MessageFinished  = "finished"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 512
)

// Message is a single event on the live feed.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Failure struct {
	AgentID string `json:"agent_id"`
	Tick    uint64 `json:"tick"`
	Error   string `json:"error"`
}

// LiveHub pushes session events to websocket clients. It is a racesim.Plugin,
// so every event is sent from inside Session.Tick; a client which cannot keep
// up is disconnected rather than allowed to block the session.
type LiveHub struct {
	logger   racesim.Logger
	upgrader websocket.Upgrader

	mutex     sync.RWMutex
	clients   map[*liveClient]bool
	info      *racesim.SessionInfo
	standings []racesim.Standing
}

type liveClient struct {
	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func (c *liveClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func NewLiveHub(logger racesim.Logger) *LiveHub {
	return &LiveHub{
		logger:  logger,
		clients: make(map[*liveClient]bool),
		upgrader: websocket.Upgrader{
			// the viewer is served from a different origin during development
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)

	if err != nil {
		h.logger.WithError(err).Debugf("Could not upgrade live connection")
		return
	}

	client := &liveClient{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	h.mutex.Lock()
	h.clients[client] = true

	// new clients catch up with the current session before any live event
	if h.info != nil {
		h.enqueue(client, MessageSession, h.info)
	}

	if h.standings != nil {
		h.enqueue(client, MessageStandings, h.standings)
	}
	h.mutex.Unlock()

	h.logger.Debugf("Live client connected from %s", r.RemoteAddr)

	go h.writePump(client)
	h.readPump(client)
}

func (h *LiveHub) enqueue(client *liveClient, messageType string, data interface{}) {
	b, err := json.Marshal(Message{Type: messageType, Data: data})

	if err != nil {
		h.logger.WithError(err).Errorf("Could not marshal %s message", messageType)
		return
	}

	select {
	case client.send <- b:
	default:
	}
}

// readPump only exists to handle pongs and notice the client going away.
func (h *LiveHub) readPump(client *liveClient) {
	defer h.remove(client)

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *LiveHub) writePump(client *liveClient) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		h.remove(client)
	}()

	for {
		select {
		case <-client.done:
			return
		case message := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *LiveHub) remove(client *liveClient) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mutex.Unlock()

	client.close()

	if ok {
		h.logger.Debugf("Live client disconnected")
	}
}

func (h *LiveHub) NumClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients)
}

func (h *LiveHub) broadcast(messageType string, data interface{}) error {
	b, err := json.Marshal(Message{Type: messageType, Data: data})

	if err != nil {
		return err
	}

	var slow []*liveClient

	h.mutex.RLock()
	for client := range h.clients {
		select {
		case client.send <- b:
		default:
			slow = append(slow, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range slow {
		h.logger.Warnf("Disconnecting live client which is not keeping up")
		h.remove(client)
	}

	return nil
}

// Close disconnects every client.
func (h *LiveHub) Close() {
	h.mutex.Lock()
	clients := h.clients
	h.clients = make(map[*liveClient]bool)
	h.mutex.Unlock()

	for client := range clients {
		client.close()
	}
}

func (h *LiveHub) Init(info racesim.SessionInfo, logger racesim.Logger) error {
	h.mutex.Lock()
	h.info = &info
	h.standings = nil
	h.mutex.Unlock()

	return h.broadcast(MessageSession, info)
}

func (h *LiveHub) OnAgentPose(pose racesim.AgentPose) error {
	return h.broadcast(MessagePose, pose)
}

func (h *LiveHub) OnLapCompleted(event racesim.LapEvent) error {
	return h.broadcast(MessageLap, event)
}

func (h *LiveHub) OnStandingsChanged(standings []racesim.Standing) error {
	h.mutex.Lock()
	h.standings = standings
	h.mutex.Unlock()

	return h.broadcast(MessageStandings, standings)
}

func (h *LiveHub) OnAgentFailed(failure *racesim.AgentStepError) error {
	return h.broadcast(MessageFailure, Failure{
		AgentID: failure.AgentID,
		Tick:    failure.Tick,
		Error:   failure.Err.Error(),
	})
}

func (h *LiveHub) OnIncident(incident racesim.Incident) error {
	return h.broadcast(MessageIncident, incident)
}

func (h *LiveHub) OnSessionFinished(standings []racesim.Standing) error {
	return h.broadcast(MessageFinished, standings)
}
