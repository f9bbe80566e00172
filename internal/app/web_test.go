package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_receiver/internal/latest"
	"github.com/relabs-tech/inertial_receiver/internal/receiver"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

type fakeStream struct {
	cell  *latest.Cell
	state receiver.State
	stats receiver.Stats
}

func (f *fakeStream) Snapshot() latest.Snapshot { return f.cell.Snapshot() }
func (f *fakeStream) State() receiver.State     { return f.state }
func (f *fakeStream) Stats() receiver.Stats     { return f.stats }

func newTestWeb() (*webServer, *fakeStream, *fakeStream) {
	orient := &fakeStream{cell: latest.New(), state: receiver.StateConnected}
	accel := &fakeStream{cell: latest.New(), state: receiver.StateAccepting}
	ws := newWebServer(
		map[sample.Kind]stream{sample.Orientation: orient, sample.Acceleration: accel},
		map[sample.Kind]time.Duration{sample.Orientation: 5 * time.Millisecond, sample.Acceleration: 5 * time.Millisecond},
	)
	return ws, orient, accel
}

func TestWeb_SampleUnavailableBeforeFirstStore(t *testing.T) {
	ws, _, _ := newTestWeb()
	srv := httptest.NewServer(ws.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/orientation")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWeb_Sample(t *testing.T) {
	ws, orient, accel := newTestWeb()
	orient.cell.Store(sample.Sample{X: 90})
	accel.cell.Store(sample.Sample{X: 10, Y: 30})
	srv := httptest.NewServer(ws.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/orientation")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Kind   sample.Kind   `json:"kind"`
		Sample sample.Sample `json:"sample"`
		Seq    uint64        `json:"seq"`
		View   struct {
			Rotation struct{ W, X float64 } `json:"rotation"`
		} `json:"view"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, sample.Orientation, body.Kind)
	assert.Equal(t, sample.Sample{X: 90}, body.Sample)
	assert.Equal(t, uint64(1), body.Seq)
	assert.InDelta(t, 0.7071, body.View.Rotation.X, 1e-3)

	resp2, err := http.Get(srv.URL + "/api/acceleration")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var accelBody struct {
		View struct {
			RollDeg float64 `json:"roll_deg"`
			TiltX   float64 `json:"tilt_x"`
		} `json:"view"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&accelBody))
	assert.InDelta(t, 30, accelBody.View.RollDeg, 1e-9)
	assert.InDelta(t, 0.5, accelBody.View.TiltX, 1e-9)
}

func TestWeb_Stats(t *testing.T) {
	ws, orient, _ := newTestWeb()
	orient.stats = receiver.Stats{Connections: 2, Samples: 7}
	srv := httptest.NewServer(ws.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]StreamStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body, "orientation")
	assert.Equal(t, "connected", body["orientation"].State)
	assert.Equal(t, uint64(7), body["orientation"].Stats.Samples)
	assert.Equal(t, "accepting", body["acceleration"].State)
}

func TestWeb_StreamPushesLatestSample(t *testing.T) {
	ws, orient, _ := newTestWeb()
	srv := httptest.NewServer(ws.routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orientation"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Frames flow before any data with the zero sample.
	var frame Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, sample.Orientation, frame.Kind)

	orient.cell.Store(sample.Sample{X: 1, Y: 2, Z: 3})
	require.Eventually(t, func() bool {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			return false
		}
		return f.Sample == sample.Sample{X: 1, Y: 2, Z: 3}
	}, 2*time.Second, time.Millisecond)
}
