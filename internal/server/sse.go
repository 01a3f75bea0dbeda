package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// streamBacklog is how many recent events are kept for Last-Event-ID replay.
	streamBacklog = 1000

	streamClientBuffer = 64
)

// streamKeepalive is the interval between keepalive comments. Each tick also
// re-checks the stream's session.
var streamKeepalive = 15 * time.Second

// Control events written by the stream itself, never published on the bus.
const (
	streamReset   = "stream.reset"   // replay gap; the client should refetch the lanes
	streamRevoked = "session.revoked" // the session lost access; the stream ends
)

// streamEvent is one lane or session event as delivered to stream clients.
type streamEvent struct {
	Seq   uint64
	Topic string
	JobID string
	Data  []byte
}

// eventRing holds the most recent events in sequence order.
type eventRing struct {
	buf  [streamBacklog]streamEvent
	next int // write position
	n    int // valid entries
}

func (r *eventRing) push(e streamEvent) {
	r.buf[r.next] = e
	r.next = (r.next + 1) % streamBacklog
	if r.n < streamBacklog {
		r.n++
	}
}

// since returns the buffered events after seq. ok is false when events after
// seq have already been overwritten.
func (r *eventRing) since(seq uint64) (out []streamEvent, ok bool) {
	if r.n == 0 {
		return nil, true
	}
	start := (r.next - r.n + streamBacklog) % streamBacklog
	ok = seq+1 >= r.buf[start].Seq
	for i := range r.n {
		if e := r.buf[(start+i)%streamBacklog]; e.Seq > seq {
			out = append(out, e)
		}
	}
	return out, ok
}

// streamFilter selects events by topic pattern and, optionally, job id.
type streamFilter struct {
	patterns [][]string // split topic patterns; empty matches every topic
	jobID    string
}

func newStreamFilter(topics []string, jobID string) streamFilter {
	f := streamFilter{jobID: jobID}
	for _, t := range topics {
		f.patterns = append(f.patterns, strings.Split(t, "."))
	}
	return f
}

func (f streamFilter) match(e *streamEvent) bool {
	if f.jobID != "" && e.JobID != f.jobID {
		return false
	}
	if len(f.patterns) == 0 {
		return true
	}
	segs := strings.Split(e.Topic, ".")
	for _, p := range f.patterns {
		if matchSegments(p, segs) {
			return true
		}
	}
	return false
}

// matchTopicPattern reports whether a dot-separated topic matches pattern,
// where "*" matches one segment and a trailing ">" one or more.
func matchTopicPattern(pattern, topic string) bool {
	return matchSegments(strings.Split(pattern, "."), strings.Split(topic, "."))
}

func matchSegments(pat, topic []string) bool {
	for i, p := range pat {
		if p == ">" {
			return i < len(topic)
		}
		if i >= len(topic) || (p != "*" && p != topic[i]) {
			return false
		}
	}
	return len(pat) == len(topic)
}

type streamClient struct {
	filter streamFilter
	ch     chan *streamEvent
}

// sseHub fans recorded events out to stream clients. Delivery never blocks
// the caller: a client whose buffer is full misses the event.
type sseHub struct {
	mu      sync.Mutex
	seq     uint64
	ring    eventRing
	clients map[*streamClient]struct{}
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*streamClient]struct{})}
}

func (h *sseHub) broadcast(topic, jobID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	e := streamEvent{Seq: h.seq, Topic: topic, JobID: jobID, Data: payload}
	h.ring.push(e)
	for c := range h.clients {
		if c.filter.match(&e) {
			select {
			case c.ch <- &e:
			default:
			}
		}
	}
}

// subscribe registers a client and, when resume is set, returns the backlog
// after lastSeq that matches its filter. Registration and backlog read happen
// under one lock so no event falls between them.
func (h *sseHub) subscribe(f streamFilter, resume bool, lastSeq uint64) (c *streamClient, backlog []streamEvent, gap bool) {
	c = &streamClient{filter: f, ch: make(chan *streamEvent, streamClientBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if !resume {
		return c, nil, false
	}
	all, ok := h.ring.since(lastSeq)
	for _, e := range all {
		if f.match(&e) {
			backlog = append(backlog, e)
		}
	}
	return c, backlog, !ok
}

func (h *sseHub) unsubscribe(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// handleEventStream handles GET /v1/events/stream.
//
// Query parameters: topics (comma-separated patterns), job_id, and, for
// EventSource clients that cannot set headers, session_id and last_event_id.
// When the gate is enabled the stream ends with a session.revoked event as
// soon as its session stops being Granted.
func (s *JobsServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		sessionID = q.Get("session_id")
	}
	if _, err := s.authorizeSession(sessionID); err != nil {
		writeStoreError(w, err, "authorize session")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	for _, t := range strings.Split(q.Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	lastID := r.Header.Get("Last-Event-ID")
	if lastID == "" {
		lastID = q.Get("last_event_id")
	}
	lastSeq, err := strconv.ParseUint(lastID, 10, 64)
	resume := lastID != "" && err == nil

	client, backlog, gap := s.sseHub.subscribe(newStreamFilter(topics, q.Get("job_id")), resume, lastSeq)
	defer s.sseHub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if gap {
		writeControlEvent(w, streamReset, map[string]uint64{"last_event_id": lastSeq})
	}
	for i := range backlog {
		writeStreamEvent(w, &backlog[i])
	}
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	// revoked checks the session before anything else is written.
	revoked := func() bool {
		_, err := s.authorizeSession(sessionID)
		if err == nil {
			return false
		}
		body := map[string]string{"error": err.Error()}
		var ae *accessError
		if errors.As(err, &ae) {
			body["state"] = ae.session.State.String()
			body["reason"] = string(ae.session.Reason)
		}
		writeControlEvent(w, streamRevoked, body)
		flusher.Flush()
		return true
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-client.ch:
			if revoked() {
				return
			}
			writeStreamEvent(w, e)
			flusher.Flush()
		case <-keepalive.C:
			if revoked() {
				return
			}
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, e *streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", e.Seq, e.Topic, e.Data)
}

func writeControlEvent(w http.ResponseWriter, name string, v any) {
	data, _ := json.Marshal(v)
	fmt.Fprintf(w, "event:%s\ndata:%s\n\n", name, data)
}
