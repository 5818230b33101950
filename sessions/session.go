package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/actionforge/actportal-cli/build"
	"github.com/actionforge/actportal-cli/core"
	"github.com/actionforge/actportal-cli/utils"
)

// ProtocolVersion is the status-stream protocol spoken over the
// websocket. The UI and the CLI must agree on the major version.
const ProtocolVersion = "1.0.0"

const (
	// Message Types (to browser)
	MsgTypeHello  = "hello"
	MsgTypeStatus = "status"
	MsgTypeLog    = "log"
	MsgTypeError  = "error"

	// Message Types (from browser)
	MsgTypeStop    = "stop"
	MsgTypeRefresh = "refresh"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Protocol  string          `json:"protocol,omitempty"`
	Version   string          `json:"version,omitempty"`
	Text      string          `json:"text,omitempty"`
	Status    *StatusPayload  `json:"status,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// StatusPayload mirrors an ExecutionResult for the UI.
type StatusPayload struct {
	ExecutionID string `json:"execution_id"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	WorkflowID  string `json:"workflow_id"`
	Ref         string `json:"ref"`
	Status      string `json:"status"`
	RunID       int64  `json:"run_id,omitempty"`
	TriggeredAt string `json:"triggered_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Session is one live status stream to a connected portal UI. Writes
// are serialized; gorilla/websocket allows only one concurrent writer.
type Session struct {
	ID string

	conn     *websocket.Conn
	writeMux sync.Mutex

	closeOnce sync.Once
}

// Connect dials the session endpoint and performs the hello handshake,
// rejecting a UI that speaks an incompatible protocol major.
func Connect(ctx context.Context, rawURL string) (*Session, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid session url '%s'", rawURL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.Errorf("session url must be ws:// or wss://, got '%s'", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to session endpoint")
	}

	s := &Session{
		ID:   uuid.NewString(),
		conn: conn,
	}

	err = s.send(Message{
		Type:      MsgTypeHello,
		SessionID: s.ID,
		Protocol:  ProtocolVersion,
		Version:   build.GetAppVersion(),
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	var hello Message
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "session handshake failed")
	}
	if hello.Type != MsgTypeHello {
		_ = conn.Close()
		return nil, errors.Errorf("unexpected handshake message '%s'", hello.Type)
	}
	if err := checkProtocol(hello.Protocol); err != nil {
		_ = conn.Close()
		return nil, err
	}

	utils.LogOut.Debugf("session %s connected to %s\n", s.ID, u.Host)
	return s, nil
}

func checkProtocol(remote string) error {
	if remote == "" {
		return errors.New("session endpoint sent no protocol version")
	}

	local := semver.MustParse(ProtocolVersion)
	theirs, err := semver.NewVersion(remote)
	if err != nil {
		return errors.Wrapf(err, "invalid protocol version '%s'", remote)
	}

	if theirs.Major() != local.Major() {
		return errors.Errorf("incompatible session protocol: UI speaks %s, this build speaks %s", remote, ProtocolVersion)
	}
	return nil
}

// SendStatus relays one execution status snapshot to the UI.
func (s *Session) SendStatus(record *core.ExecutionResult) error {
	payload := &StatusPayload{
		ExecutionID: record.ID,
		Owner:       record.Owner,
		Repo:        record.Repo,
		WorkflowID:  record.WorkflowID,
		Ref:         record.Ref,
		Status:      string(record.Status),
		RunID:       record.RunID,
		TriggeredAt: record.TriggeredAt.Format(time.RFC3339),
		Error:       record.Error,
	}
	if !record.CompletedAt.IsZero() {
		payload.CompletedAt = record.CompletedAt.Format(time.RFC3339)
	}
	return s.send(Message{Type: MsgTypeStatus, Status: payload})
}

// SendLog relays one log line to the UI.
func (s *Session) SendLog(format string, args ...any) error {
	return s.send(Message{Type: MsgTypeLog, Text: fmt.Sprintf(format, args...)})
}

// SendError relays a user-visible failure to the UI.
func (s *Session) SendError(text string) error {
	return s.send(Message{Type: MsgTypeError, Text: text})
}

func (s *Session) send(msg Message) error {
	s.writeMux.Lock()
	defer s.writeMux.Unlock()
	return s.conn.WriteJSON(msg)
}

// ControlHandler reacts to control messages sent by the UI.
type ControlHandler struct {
	OnStop    func()
	OnRefresh func()
}

// Listen reads control messages until the connection closes or ctx is
// cancelled. It runs on the caller's goroutine.
func (s *Session) Listen(ctx context.Context, handler ControlHandler) {
	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				utils.LogOut.Debugf("session %s read error: %v\n", s.ID, err)
			}
			return
		}

		switch msg.Type {
		case MsgTypeStop:
			if handler.OnStop != nil {
				handler.OnStop()
			}
		case MsgTypeRefresh:
			if handler.OnRefresh != nil {
				handler.OnRefresh()
			}
		default:
			utils.LogOut.Debugf("session %s ignoring message type '%s'\n", s.ID, msg.Type)
		}
	}
}

// Close ends the session. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = s.conn.Close()
	})
}
