package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/anistream/anistream/log"
)

// observed lists the properties the listener subscribes to.
var observed = []string{"pause", "eof-reached"}

// EventListener keeps a dedicated IPC connection open and translates mpv
// property changes and events into media events.
type EventListener struct {
	socketPath string
	emit       func(MediaEvent, error)

	mu        sync.Mutex
	conn      net.Conn
	stopCh    chan struct{}
	listening bool
}

// NewEventListener creates a listener delivering media events to emit.
func NewEventListener(socketPath string, emit func(MediaEvent, error)) *EventListener {
	return &EventListener{
		socketPath: socketPath,
		emit:       emit,
	}
}

// Start opens the connection and registers the observers on it. mpv only
// sends property changes to the client that observed them.
func (el *EventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	conn, err := net.DialTimeout("unix", el.socketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	for i, name := range observed {
		payload, err := json.Marshal(ipcCommand{Command: []any{"observe_property", i + 1, name}})
		if err != nil {
			_ = conn.Close()
			return err
		}
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			_ = conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el.conn = conn
	el.stopCh = make(chan struct{})
	el.listening = true

	go el.readLoop(conn, el.stopCh)

	log.Infof("mpv event listener started on %s", el.socketPath)
	return nil
}

// Stop closes the connection.
func (el *EventListener) Stop() {
	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.listening {
		return
	}

	close(el.stopCh)
	_ = el.conn.Close()
	el.listening = false
}

func (el *EventListener) readLoop(conn net.Conn, stop <-chan struct{}) {
	reader := bufio.NewReader(conn)
	var pending []byte

	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}

		line, err := reader.ReadBytes('\n')
		pending = append(pending, line...)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			select {
			case <-stop:
			default:
				log.Warnf("event listener read error: %v", err)
			}
			return
		}

		if sig, ok := translate(pending); ok && el.emit != nil {
			el.emit(sig.event, sig.err)
		}
		pending = pending[:0]
	}
}

type mpvEvent struct {
	Event     string `json:"event"`
	Name      string `json:"name"`
	Data      any    `json:"data"`
	Reason    string `json:"reason"`
	FileError string `json:"file_error"`
}

type signal struct {
	event MediaEvent
	err   error
}

// translate maps one mpv message to a media event.
func translate(line []byte) (signal, bool) {
	var msg mpvEvent
	if err := json.Unmarshal(line, &msg); err != nil {
		return signal{}, false
	}

	switch msg.Event {
	case "property-change":
		value, _ := msg.Data.(bool)
		switch msg.Name {
		case "pause":
			if value {
				return signal{event: MediaPaused}, true
			}
			return signal{event: MediaPlaying}, true
		case "eof-reached":
			if value {
				return signal{event: MediaEnded}, true
			}
		}
	case "end-file":
		if msg.Reason == "error" {
			reason := msg.FileError
			if reason == "" {
				reason = "playback error"
			}
			return signal{event: MediaError, err: errors.New(reason)}, true
		}
	}

	return signal{}, false
}
