package player

import (
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

type ipcCommand struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type ipcMessage struct {
	Data      any    `json:"data"`
	Error     string `json:"error"`
	RequestID int64  `json:"request_id"`
	Event     string `json:"event"`
}

const (
	maxRetries   = 3
	retryDelay   = 100 * time.Millisecond
	dialTimeout  = time.Second
	readDeadline = time.Second
)

var requestID atomic.Int64

// sendCommand runs a JSON-IPC command against mpv, retrying transient failures.
func (m *MPV) sendCommand(command ...any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		result, err := doSendCommand(m.socketPath, command)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("ipc %v failed after %d attempts: %w", command[0], maxRetries, lastErr)
}

// doSendCommand performs a single round trip. mpv broadcasts events to every
// client, so messages are skipped until the reply carrying our request id.
func doSendCommand(socketPath string, command []any) (any, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	id := requestID.Add(1)
	payload, err := json.Marshal(ipcCommand{Command: command, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	dec := json.NewDecoder(conn)
	for {
		var msg ipcMessage
		if err := dec.Decode(&msg); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		if msg.Event != "" || msg.RequestID != id {
			continue
		}
		if msg.Error != "" && msg.Error != "success" {
			return nil, fmt.Errorf("mpv error: %s", msg.Error)
		}
		return msg.Data, nil
	}
}
