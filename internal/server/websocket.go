package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"crucible/internal/llm"
	"crucible/internal/pipeline"
	"crucible/internal/storage"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the playground is same-origin; embedders front their own auth
	},
}

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`      // cancel: which run
	Code    string `json:"code,omitempty"`    // execute
	Prompt  string `json:"prompt,omitempty"`  // generate
	Profile string `json:"profile,omitempty"` // generate
	Execute bool   `json:"execute,omitempty"` // generate: also run the result
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type    string       `json:"type"`
	ID      string       `json:"id,omitempty"`
	Content string       `json:"content,omitempty"`
	Run     *storage.Run `json:"run,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	// Runs derive from connCtx, so a dropped connection interrupts
	// whatever it started.
	connCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &wsClient{srv: s, conn: conn}

	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.log.Debug().Err(err).Msg("websocket read")
			return
		}

		switch msg.Type {
		case "execute", "generate":
			c.start(connCtx, msg)
		case "cancel":
			if !s.active.Cancel(msg.ID) {
				c.send(wsOutgoing{Type: "error", Content: "no active run with that id"})
			}
		default:
			c.send(wsOutgoing{Type: "error", Content: "invalid message"})
		}
	}
}

// wsClient is one connected playground client.
type wsClient struct {
	srv     *Server
	conn    *websocket.Conn
	writeMu sync.Mutex
	runMu   sync.Mutex // one run per connection at a time
}

func (c *wsClient) send(v wsOutgoing) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.srv.log.Debug().Err(err).Msg("websocket write")
	}
}

// start kicks the run off in the background so the read loop stays free
// to receive a cancel.
func (c *wsClient) start(connCtx context.Context, msg wsIncoming) {
	if !c.runMu.TryLock() {
		c.send(wsOutgoing{Type: "error", Content: "a run is already in flight on this connection"})
		return
	}

	go func() {
		defer c.runMu.Unlock()
		c.run(connCtx, msg)
	}()
}

func (c *wsClient) run(connCtx context.Context, msg wsIncoming) {
	s := c.srv

	ctx, cancel := context.WithCancel(connCtx)
	defer cancel()

	kind := storage.KindExecute
	if msg.Type == "generate" {
		kind = storage.KindGenerate
	}

	id := uuid.New().String()
	s.active.Track(id, kind, cancel)
	defer s.active.Remove(id)

	c.send(wsOutgoing{Type: "started", ID: id})

	var run *storage.Run
	switch kind {
	case storage.KindExecute:
		if strings.TrimSpace(msg.Code) == "" {
			c.send(wsOutgoing{Type: "error", ID: id, Content: "code is required"})
			return
		}
		res := s.engine.Execute(ctx, msg.Code)
		run = pipeline.NewRun(storage.KindExecute, "", "", msg.Code, res)

	case storage.KindGenerate:
		if strings.TrimSpace(msg.Prompt) == "" {
			c.send(wsOutgoing{Type: "error", ID: id, Content: "prompt is required"})
			return
		}
		gen, err := c.streamGenerate(ctx, msg)
		if err != nil {
			c.send(wsOutgoing{Type: "error", ID: id, Content: err.Error()})
			return
		}
		c.send(wsOutgoing{Type: "generated", ID: id, Content: gen.Code})
		if !msg.Execute {
			return
		}
		res := s.engine.Execute(ctx, gen.Code)
		run = pipeline.NewRun(storage.KindGenerate, msg.Prompt, gen.Model, gen.Code, res)
		run.Explanation = gen.Explanation
	}

	run.ID = id
	s.saveRun(run)
	c.send(wsOutgoing{Type: "result", ID: id, Run: run})
}

// streamGenerate forwards model deltas to the client as they arrive.
func (c *wsClient) streamGenerate(ctx context.Context, msg wsIncoming) (*llm.Generation, error) {
	s := c.srv
	if s.gen == nil || !s.gen.Available() {
		return nil, llm.ErrUnavailable
	}
	profile, ok := s.lookupProfile(msg.Profile)
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", msg.Profile)
	}

	return s.gen.GenerateStream(ctx, llm.Request{
		Prompt:  msg.Prompt,
		Modules: s.engine.Policy().AllowedImports,
		Profile: profile,
	}, func(delta string) {
		c.send(wsOutgoing{Type: "delta", Content: delta})
	})
}
