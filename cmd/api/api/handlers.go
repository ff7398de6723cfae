package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/onkernel/stillcam/lib/live"
	"github.com/onkernel/stillcam/lib/logger"
)

// ServeIndex writes the viewer page.
func (s *ApiService) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(s.indexPage); err != nil {
		logger.FromContext(r.Context()).DebugContext(r.Context(), "write index page", "error", err)
	}
}

// ServeSnapshot writes the current frame. Before the first capture the
// body is empty.
func (s *ApiService) ServeSnapshot(w http.ResponseWriter, r *http.Request) {
	data := s.Distributor.Snapshot()
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.FromContext(r.Context()).DebugContext(r.Context(), "write snapshot", "error", err)
	}
}

// ServeStream holds the connection open and pushes every new frame.
func (s *ApiService) ServeStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", s.Distributor.ContentType())
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)

	var timeout time.Duration
	if s.Config != nil {
		timeout = s.Config.StreamWriteTimeout
	}

	// Send headers now; the first frame may be a capture period away.
	sink := newStreamSink(w, timeout)
	if err := sink.Flush(); err != nil {
		return
	}
	err := s.Distributor.ServeStream(r.Context(), sink)
	if err != nil && !errors.Is(err, live.ErrStale) && r.Context().Err() == nil {
		logger.FromContext(r.Context()).InfoContext(r.Context(), "stream ended", "error", err)
	}
}

type healthResponse struct {
	Images        int    `json:"images"`
	ActiveStreams int    `json:"active_streams"`
	FrameSeq      uint64 `json:"frame_seq"`
}

// Health reports archive and stream counters.
func (s *ApiService) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		ActiveStreams: s.Distributor.ActiveStreams(),
		FrameSeq:      s.Distributor.Current().Seq,
	}
	if s.Repository != nil {
		resp.Images = s.Repository.Len()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "encode health response", "error", err)
	}
}

// streamSink flushes each frame to the client and bounds every write.
type streamSink struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	timeout time.Duration
}

func newStreamSink(w http.ResponseWriter, timeout time.Duration) *streamSink {
	return &streamSink{w: w, rc: http.NewResponseController(w), timeout: timeout}
}

func (s *streamSink) Write(p []byte) (int, error) {
	if s.timeout > 0 {
		err := s.rc.SetWriteDeadline(time.Now().Add(s.timeout))
		if err != nil && !errors.Is(err, http.ErrNotSupported) {
			return 0, err
		}
	}
	return s.w.Write(p)
}

func (s *streamSink) Flush() error {
	err := s.rc.Flush()
	if errors.Is(err, http.ErrNotSupported) {
		return nil
	}
	return err
}
