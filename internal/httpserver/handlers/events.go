package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/dashboard"
	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

const defaultHeartbeat = 25 * time.Second

// statePayload is what the page script consumes on every "state" event.
type statePayload struct {
	ViewID     string `json:"view_id"`
	Loading    bool   `json:"loading"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Adding     bool   `json:"adding"`
	DeletingID string `json:"deleting_id,omitempty"`
	FormGen    uint64 `json:"form_gen"`
	Count      int    `json:"count"`
	ListHTML   string `json:"list_html"`
}

// streamSink buffers view output for the stream writer. States that only
// differ in the list collapse into the latest one; a change in loading,
// pending flags or form generation is queued so the page sees every step.
type streamSink struct {
	mu       sync.Mutex
	states   []dashboard.State
	alerts   []string
	navigate string
	wake     chan struct{}
}

func newStreamSink() *streamSink {
	return &streamSink{wake: make(chan struct{}, 1)}
}

func (s *streamSink) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *streamSink) State(st dashboard.State) {
	s.mu.Lock()
	if n := len(s.states); n > 0 && samePhase(s.states[n-1], st) {
		s.states[n-1] = st
	} else {
		s.states = append(s.states, st)
	}
	s.mu.Unlock()
	s.signal()
}

// samePhase reports whether b can replace a without the page missing a step.
func samePhase(a, b dashboard.State) bool {
	return a.Loading == b.Loading &&
		a.Adding == b.Adding &&
		a.DeletingID == b.DeletingID &&
		a.FormGen == b.FormGen
}

func (s *streamSink) Alert(msg string) {
	s.mu.Lock()
	s.alerts = append(s.alerts, msg)
	s.mu.Unlock()
	s.signal()
}

func (s *streamSink) Navigate(path string) {
	s.mu.Lock()
	s.navigate = path
	s.mu.Unlock()
	s.signal()
}

func (s *streamSink) drain() ([]dashboard.State, []string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	states, alerts, nav := s.states, s.alerts, s.navigate
	s.states, s.alerts = nil, nil
	return states, alerts, nav
}

// writeEvent writes one SSE frame; multi-line data becomes several data lines.
func writeEvent(w io.Writer, event string, data []byte) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\n", event)
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

func encodeState(st dashboard.State) ([]byte, error) {
	list, err := renderBookmarks(st)
	if err != nil {
		return nil, err
	}
	return json.Marshal(statePayload{
		ViewID:     st.ViewID,
		Loading:    st.Loading,
		Title:      st.Title,
		URL:        st.URL,
		Adding:     st.Adding,
		DeletingID: st.DeletingID,
		FormGen:    st.FormGen,
		Count:      len(st.Bookmarks),
		ListHTML:   list,
	})
}

// Events mounts a dashboard view for the lifetime of the stream. A browser
// without a session gets a single "navigate" event to the login page.
func Events(d deps.Deps) http.HandlerFunc {
	heartbeat := d.SSEHeartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		// the server-wide WriteTimeout would cut long-lived streams
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			d.Logger.Error("event stream not flushable", logger.Error(err))
			return
		}

		sink := newStreamSink()
		view := dashboard.New(dashboard.Options{
			Repo: d.Store,
			Feed: d.Store,
			Identity: dashboard.IdentityFunc(func(context.Context) (*domain.Identity, error) {
				return d.Sessions.Current(r)
			}),
			Sink:   sink,
			Logger: d.Logger,
		})

		d.Views.Add(view)
		defer func() {
			d.Views.Remove(view.ID())
			view.Unmount()
		}()

		if err := view.Mount(r.Context()); err != nil {
			d.Logger.Error("mount dashboard view", logger.Error(err))
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-d.Views.Closing():
				return
			case <-ticker.C:
				if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			case <-sink.wake:
				states, alerts, nav := sink.drain()
				for _, st := range states {
					data, err := encodeState(st)
					if err != nil {
						d.Logger.Error("encode dashboard state", logger.Error(err))
						return
					}
					if err := writeEvent(w, "state", data); err != nil {
						return
					}
				}
				for _, msg := range alerts {
					if err := writeEvent(w, "alert", []byte(msg)); err != nil {
						return
					}
				}
				if nav != "" {
					_ = writeEvent(w, "navigate", []byte(nav))
					_ = rc.Flush()
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}
