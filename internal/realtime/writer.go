package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Writer frames server-sent events as "id: n\nevent: name\ndata: json\n\n"
// with ids counting up from 1.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	seq     int
}

// NewWriter sets the streaming headers. It fails when w cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &Writer{w: w, flusher: flusher}, nil
}

// Write sends one event with data encoded as JSON.
func (s *Writer) Write(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.WriteRaw(event, raw)
}

func (s *Writer) WriteRaw(event string, raw []byte) error {
	s.seq++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, event, raw); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a keep-alive line that clients ignore.
func (s *Writer) Comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Seq is the id of the last event written.
func (s *Writer) Seq() int { return s.seq }
