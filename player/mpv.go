package player

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/log"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
)

// MPV is a MediaElement backed by an mpv process controlled over JSON-IPC.
// The process is started idle on first use and reused for every source.
type MPV struct {
	title          string
	nativeAdaptive bool

	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	tickerStop chan struct{}
	listener   *EventListener
	mu         sync.Mutex // serializes IPC round trips
	startMu    sync.Mutex

	subMu sync.Mutex
	subID int
	subs  map[int]func(MediaEvent, error)
}

// NewMPV creates an MPV element. nativeAdaptive lets mpv open HLS manifests
// itself instead of going through a pipeline.
func NewMPV(title string, nativeAdaptive bool) *MPV {
	return &MPV{
		title:          sanitizeTitle(title),
		nativeAdaptive: nativeAdaptive,
		exited:         make(chan struct{}),
		subs:           make(map[int]func(MediaEvent, error)),
	}
}

// Start launches mpv idle with a window and an IPC socket.
func (m *MPV) Start() error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	if m.cmd != nil && m.alive() {
		return nil
	}

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Errorf("generate socket name: %w", err)
	}
	// os.TempDir, since $TMPDIR on macOS is not /tmp
	m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("%s-%x.sock", constant.Anistream, randomBytes))

	// user mpv.conf decides vo, hwdec and profiles
	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--force-window=yes",
		"--keep-open=yes",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
		fmt.Sprintf("--force-media-title=%s", m.title),
		fmt.Sprintf("--title=%s", m.title),
	}

	m.cmd = exec.Command("mpv", args...)
	m.cmd.SysProcAttr = sysProcAttr()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	exited := make(chan struct{})
	m.exited = exited
	cmd := m.cmd
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	if err := m.waitForSocket(); err != nil {
		select {
		case <-exited:
		default:
			log.Warnf("killing mpv: socket never became ready")
			_ = killProcess(m.cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	m.listener = NewEventListener(m.socketPath, m.emit)
	if err := m.listener.Start(); err != nil {
		return err
	}

	return nil
}

// waitForSocket polls until the mpv IPC socket is accepting connections.
func (m *MPV) waitForSocket() error {
	for range socketWaitRetries {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			_ = conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

func (m *MPV) alive() bool {
	select {
	case <-m.exited:
		return false
	default:
		return true
	}
}

// SetSource loads target paused, replacing the current file.
func (m *MPV) SetSource(target string, headers map[string]string) error {
	safe, err := sanitizeMediaTarget(target)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	if err := m.Start(); err != nil {
		return err
	}

	if _, err := m.sendCommand("set_property", "http-header-fields", headerFields(headers)); err != nil {
		return err
	}
	if _, err := m.sendCommand("set_property", "pause", true); err != nil {
		return err
	}
	_, err = m.sendCommand("loadfile", safe, "replace")
	return err
}

// ClearSource stops playback and unloads the file.
func (m *MPV) ClearSource() error {
	if m.socketPath == "" || !m.alive() {
		return nil
	}
	_, err := m.sendCommand("stop")
	return err
}

// Play unpauses.
func (m *MPV) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.alive() {
		return fmt.Errorf("mpv is not running")
	}
	return m.Set("pause", false)
}

// Pause pauses.
func (m *MPV) Pause() error {
	return m.Set("pause", true)
}

// CurrentTime returns the playback position in seconds.
func (m *MPV) CurrentTime() (float64, error) {
	return m.getFloatProperty("time-pos")
}

// Duration returns the length of the current file in seconds.
func (m *MPV) Duration() (float64, error) {
	return m.getFloatProperty("duration")
}

// Seek moves playback to an absolute position in seconds.
func (m *MPV) Seek(seconds float64) error {
	_, err := m.sendCommand("seek", seconds, "absolute")
	return err
}

// SupportsAdaptive reports whether HLS manifests are handed to mpv directly.
func (m *MPV) SupportsAdaptive() bool {
	return m.nativeAdaptive
}

// Subscribe registers fn for media events.
func (m *MPV) Subscribe(fn func(MediaEvent, error)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.subID
	m.subID++
	m.subs[id] = fn

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

func (m *MPV) emit(ev MediaEvent, err error) {
	m.subMu.Lock()
	fns := make([]func(MediaEvent, error), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(ev, err)
	}
}

// Wait returns a channel closed when the mpv process exits.
func (m *MPV) Wait() <-chan struct{} {
	return m.exited
}

// StartIPCTicker polls position and duration every second and reports them
// to callback until StopIPCTicker or the process exits.
func (m *MPV) StartIPCTicker(callback func(pos, duration float64)) {
	if m.tickerStop != nil {
		return
	}

	stop := make(chan struct{})
	m.tickerStop = stop
	exited := m.exited

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-exited:
				return
			case <-ticker.C:
				pos, err := m.CurrentTime()
				if err != nil {
					continue
				}

				// streams may not know their duration yet
				dur, err := m.Duration()
				if err != nil {
					dur = 0
				}

				callback(pos, dur)
			}
		}
	}()
}

// StopIPCTicker stops the progress ticker.
func (m *MPV) StopIPCTicker() {
	if m.tickerStop != nil {
		close(m.tickerStop)
		m.tickerStop = nil
	}
}

// Close quits mpv and removes the socket.
func (m *MPV) Close() error {
	m.StopIPCTicker()

	if m.listener != nil {
		m.listener.Stop()
	}

	if m.socketPath == "" || m.cmd == nil {
		return nil
	}

	_, _ = m.sendCommand("quit")

	select {
	case <-m.exited:
	case <-time.After(3 * time.Second):
		_ = killProcess(m.cmd)
	}

	_ = os.Remove(m.socketPath)
	return nil
}

// Set writes an mpv property.
func (m *MPV) Set(property string, value any) error {
	_, err := m.sendCommand("set_property", property, value)
	return err
}

func (m *MPV) getFloatProperty(name string) (float64, error) {
	if m.socketPath == "" {
		return 0, fmt.Errorf("property %s: mpv not started", name)
	}

	data, err := m.sendCommand("get_property", name)
	if err != nil {
		return 0, err
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}
	return val, nil
}

// headerFields renders headers as mpv's http-header-fields list, sorted for
// stable output. Commas would split an entry, so they are escaped.
func headerFields(headers map[string]string) []string {
	fields := make([]string, 0, len(headers))
	for k, v := range headers {
		fields = append(fields, fmt.Sprintf("%s: %s", k, strings.ReplaceAll(v, ",", "%2C")))
	}
	sort.Strings(fields)
	return fields
}

// sanitizeMediaTarget rejects anything mpv could read as a flag or a non-http scheme.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
