package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/inertial_receiver/internal/config"
	"github.com/relabs-tech/inertial_receiver/internal/latest"
	"github.com/relabs-tech/inertial_receiver/internal/receiver"
	"github.com/relabs-tech/inertial_receiver/internal/render"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// stream is the part of a receiver the web server reads.
type stream interface {
	Snapshot() latest.Snapshot
	State() receiver.State
	Stats() receiver.Stats
}

// SampleResponse is served by /api/orientation and /api/acceleration.
type SampleResponse struct {
	Kind   sample.Kind   `json:"kind"`
	Sample sample.Sample `json:"sample"`
	Seq    uint64        `json:"seq"`
	At     time.Time     `json:"at"`
	AgeMs  int64         `json:"age_ms"`
	View   any           `json:"view"`
}

// StreamStatus is one entry of /api/stats.
type StreamStatus struct {
	State string         `json:"state"`
	Seq   uint64         `json:"seq"`
	Stats receiver.Stats `json:"stats"`
}

// Frame is pushed to WebSocket clients once per render interval.
type Frame struct {
	Kind   sample.Kind   `json:"kind"`
	Sample sample.Sample `json:"sample"`
	View   any           `json:"view"`
}

func projectView(kind sample.Kind, s sample.Sample) any {
	if kind == sample.Acceleration {
		return render.Accel(s)
	}
	return render.Cube(s)
}

type webServer struct {
	streams   map[sample.Kind]stream
	intervals map[sample.Kind]time.Duration
	now       func() time.Time
}

func newWebServer(streams map[sample.Kind]stream, intervals map[sample.Kind]time.Duration) *webServer {
	return &webServer{streams: streams, intervals: intervals, now: time.Now}
}

func (s *webServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	for kind := range s.streams {
		mux.HandleFunc("GET /api/"+string(kind), s.handleSample(kind))
		mux.HandleFunc("GET /ws/"+string(kind), s.handleStream(kind))
	}
	mux.HandleFunc("GET /api/stats", s.handleStats)
	return mux
}

func (s *webServer) handleSample(kind sample.Kind) http.HandlerFunc {
	st := s.streams[kind]
	return func(w http.ResponseWriter, r *http.Request) {
		snap := st.Snapshot()
		if snap.Seq == 0 {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		resp := SampleResponse{
			Kind:   kind,
			Sample: snap.Sample,
			Seq:    snap.Seq,
			At:     snap.At,
			AgeMs:  s.now().Sub(snap.At).Milliseconds(),
			View:   projectView(kind, snap.Sample),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	}
}

func (s *webServer) handleStats(w http.ResponseWriter, r *http.Request) {
	out := make(map[sample.Kind]StreamStatus, len(s.streams))
	for kind, st := range s.streams {
		out[kind] = StreamStatus{
			State: st.State().String(),
			Seq:   st.Snapshot().Seq,
			Stats: st.Stats(),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleStream pushes a Frame per render tick until the client goes away.
func (s *webServer) handleStream(kind sample.Kind) http.HandlerFunc {
	st := s.streams[kind]
	interval := s.intervals[kind]
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()
		log.Printf("web: %s stream client %s connected", kind, conn.RemoteAddr())

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Clients never send; reading only detects the close.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		loop := &render.Loop{
			Name:     "ws " + string(kind),
			Interval: interval,
			Source:   render.SourceFunc(func() sample.Sample { return st.Snapshot().Sample }),
			Sink: render.SinkFunc(func(smp sample.Sample) error {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				err := conn.WriteJSON(Frame{Kind: kind, Sample: smp, View: projectView(kind, smp)})
				if err != nil {
					cancel()
				}
				return err
			}),
			Logf: func(string, ...any) {},
		}
		if err := loop.Run(ctx); err != nil {
			log.Printf("web: %s stream: %v", kind, err)
		}
		log.Printf("web: %s stream client %s disconnected", kind, conn.RemoteAddr())
	}
}

// RunWeb starts both receivers and serves their latest samples over HTTP
// and WebSocket on WEB_SERVER_PORT until ctx is cancelled.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()

	rs, err := startReceivers(ctx, cfg, sample.Orientation, sample.Acceleration)
	if err != nil {
		return err
	}
	defer stopReceivers(rs)

	streams := make(map[sample.Kind]stream, len(rs))
	for kind, r := range rs {
		streams[kind] = r
	}
	ws := newWebServer(streams, map[sample.Kind]time.Duration{
		sample.Orientation:  config.Millis(cfg.CubeRenderInterval),
		sample.Acceleration: config.Millis(cfg.AccelRenderInterval),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           ws.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		// Streams outlive Shutdown; tie them to ctx instead.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	log.Printf("web server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
