// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_receiver/internal/decode"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

func mute(string, ...any) {}

// collector accepts connections on a loopback port and hands every
// newline-terminated message to lines.
type collector struct {
	ln    net.Listener
	lines chan string
}

func newCollector(t *testing.T) *collector {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	c := &collector{ln: ln, lines: make(chan string, 64)}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				sc := bufio.NewScanner(conn)
				for sc.Scan() {
					c.lines <- sc.Text()
				}
			}()
		}
	}()
	return c
}

func (c *collector) addr() string { return c.ln.Addr().String() }

func (c *collector) next(t *testing.T) string {
	t.Helper()
	select {
	case l := <-c.lines:
		return l
	case <-time.After(2 * time.Second):
		t.Fatal("no line forwarded")
		return ""
	}
}

func TestNormalize(t *testing.T) {
	payload, s, err := Normalize([]byte(" {\"x\": 1.5, \"y\": -2, \"z\": 0.0}\r\n"))
	require.NoError(t, err)
	assert.Equal(t, `{"x": 1.5, "y": -2, "z": 0.0}`, string(payload))
	assert.Equal(t, sample.Sample{X: 1.5, Y: -2}, s)

	payload, s, err = Normalize([]byte(decode.EncodeNMEA(sample.Sample{X: 10, Y: 20, Z: 30})))
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":10,"y":20,"z":30}`, string(payload))
	assert.Equal(t, sample.Sample{X: 10, Y: 20, Z: 30}, s)

	for _, bad := range []string{"", "hello", `{"x":1}`, "$PXYZ,1,2,3*00"} {
		_, _, err := Normalize([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Targets: []Target{{Name: "a", Addr: "127.0.0.1:1"}, {Name: "b", Addr: "127.0.0.1:1"}}})
	assert.ErrorContains(t, err, "different ports")

	_, err = New(Config{Targets: []Target{{Name: "a"}}})
	assert.Error(t, err)
}

func TestRun_ForwardsValidLinesToAllTargets(t *testing.T) {
	orient := newCollector(t)
	accel := newCollector(t)

	b, err := New(Config{
		Targets:       []Target{{Name: "orientation", Addr: orient.addr()}, {Name: "accel", Addr: accel.addr()}},
		AppendNewline: true,
		Logf:          mute,
	})
	require.NoError(t, err)
	defer b.Close()

	// Chunks split mid-line the way a serial read does.
	input := iotest.OneByteReader(strings.NewReader("{\"x\":1,\"y\":2,\"z\":0}\r\ngarbage\r\n{\"x\":3,\"y\"" + ":4,\"z\":0}\r\n"))
	require.NoError(t, b.Run(context.Background(), input))

	assert.JSONEq(t, `{"x":1,"y":2,"z":0}`, orient.next(t))
	assert.JSONEq(t, `{"x":3,"y":4,"z":0}`, orient.next(t))
	assert.JSONEq(t, `{"x":1,"y":2,"z":0}`, accel.next(t))
	assert.JSONEq(t, `{"x":3,"y":4,"z":0}`, accel.next(t))

	stats := b.Stats()
	assert.Equal(t, uint64(2), stats.Forwarded)
	assert.Equal(t, uint64(1), stats.Invalid)
}

func TestConnect_RetriesUntilTargetListens(t *testing.T) {
	var attempts int
	b, err := New(Config{
		Targets:       []Target{{Name: "orientation", Addr: "127.0.0.1:65432"}},
		RetryInterval: 5 * time.Millisecond,
		Logf:          mute,
		Dial: func(ctx context.Context, addr string) (net.Conn, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection refused")
			}
			client, server := net.Pipe()
			go func() { _, _ = io.Copy(io.Discard, server) }()
			return client, nil
		},
	})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Connect(context.Background()))
	assert.Equal(t, 3, attempts)
}

func TestConnect_StopsOnCancel(t *testing.T) {
	b, err := New(Config{
		Targets:       []Target{{Name: "orientation", Addr: "127.0.0.1:9"}},
		RetryInterval: time.Hour,
		Logf:          mute,
		Dial: func(context.Context, string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Connect(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return after cancel")
	}
}

func TestRun_ReconnectsAfterWriteFailure(t *testing.T) {
	var dials int
	var second net.Conn
	received := make(chan string, 4)

	b, err := New(Config{
		Targets:       []Target{{Name: "orientation", Addr: "pipe"}},
		RetryInterval: time.Millisecond,
		AppendNewline: true,
		Logf:          mute,
		Dial: func(context.Context, string) (net.Conn, error) {
			dials++
			client, server := net.Pipe()
			if dials == 1 {
				// Peer gone: the first write fails.
				_ = server.Close()
				return client, nil
			}
			second = server
			go func() {
				sc := bufio.NewScanner(server)
				for sc.Scan() {
					received <- sc.Text()
				}
			}()
			return client, nil
		},
	})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Run(context.Background(), strings.NewReader("{\"x\":5,\"y\":6,\"z\":0}\n")))

	select {
	case line := <-received:
		assert.JSONEq(t, `{"x":5,"y":6,"z":0}`, line)
	case <-time.After(2 * time.Second):
		t.Fatal("payload not resent after reconnect")
	}
	assert.Equal(t, 2, dials)
	assert.NotNil(t, second)
	assert.Equal(t, uint64(1), b.Stats().Reconnects)
}

func TestRun_ReencodesForNMEATargets(t *testing.T) {
	orient := newCollector(t)

	b, err := New(Config{
		Targets:       []Target{{Name: "orientation", Addr: orient.addr()}},
		AppendNewline: true,
		Codec:         decode.CodecNMEA,
		Logf:          mute,
	})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Run(context.Background(), strings.NewReader("{\"x\":1.5,\"y\":-2,\"z\":0}\r\n")))

	line := orient.next(t)
	assert.Equal(t, decode.EncodeNMEA(sample.Sample{X: 1.5, Y: -2}), line)

	s, err := decode.NewNMEADecoder().Decode([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, sample.Sample{X: 1.5, Y: -2}, s)
}
