// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package metricsx implements the shard.Recorder collaborator on top of
// VictoriaMetrics' metrics.Set, exposing tunnel and relay counters at a
// Prometheus-compatible /metrics endpoint.
package metricsx

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// Recorder records tunnel lifecycle and relay events into a private
// metrics.Set: counters are created once and reused, with reason and
// direction labels baked into the metric name.
type Recorder struct {
	set *metrics.Set

	tunnelsActive   *metrics.Counter
	tunnelsOpened   func(atyp string) *metrics.Counter
	handshakeFailed func(reason string) *metrics.Counter
	bytesRelayed    func(direction string) *metrics.Counter
	conntableSize   uint64 // bits of a float64, updated via atomic
}

// New constructs a Recorder with its own metrics.Set, so multiple shards
// (or tests) never collide on global registration.
func New() *Recorder {
	set := metrics.NewSet()
	r := &Recorder{
		set:           set,
		tunnelsActive: set.NewCounter(`rsockd_tunnels_active`),
	}

	r.tunnelsOpened = func(atyp string) *metrics.Counter {
		return set.GetOrCreateCounter(fmt.Sprintf(`rsockd_tunnels_opened_total{atyp=%q}`, atyp))
	}
	r.handshakeFailed = func(reason string) *metrics.Counter {
		return set.GetOrCreateCounter(fmt.Sprintf(`rsockd_handshake_failures_total{reason=%q}`, reason))
	}
	r.bytesRelayed = func(direction string) *metrics.Counter {
		return set.GetOrCreateCounter(fmt.Sprintf(`rsockd_bytes_relayed_total{direction=%q}`, direction))
	}
	// Gauges in VictoriaMetrics/metrics are callback-driven rather than
	// settable directly, so conntableSize is stored as atomic float64
	// bits and the gauge just reads it back.
	set.NewGauge(`rsockd_conntable_size`, func() float64 {
		return math.Float64frombits(atomic.LoadUint64(&r.conntableSize))
	})

	return r
}

// atypLabel maps a proto.Atyp* byte to the label used in
// rsockd_tunnels_opened_total; unknown values fall back to "unknown"
// rather than panicking on a malformed caller.
func atypLabel(atyp byte) string {
	switch atyp {
	case 0x01:
		return "ipv4"
	case 0x03:
		return "domain"
	case 0x04:
		return "ipv6"
	default:
		return "unknown"
	}
}

// TunnelOpened implements shard.Recorder.
func (r *Recorder) TunnelOpened(atyp byte) {
	r.tunnelsActive.Inc()
	r.tunnelsOpened(atypLabel(atyp)).Inc()
}

// HandshakeFailure implements shard.Recorder.
func (r *Recorder) HandshakeFailure(reason string) {
	r.handshakeFailed(reason).Inc()
}

// BytesRelayed implements shard.Recorder.
func (r *Recorder) BytesRelayed(direction string, n int) {
	r.bytesRelayed(direction).Add(n)
}

// TableSize implements shard.Recorder.
func (r *Recorder) TableSize(n int) {
	atomic.StoreUint64(&r.conntableSize, math.Float64bits(float64(n)))
}

// WritePrometheus writes this recorder's metrics in Prometheus
// exposition format.
func (r *Recorder) WritePrometheus(w io.Writer) {
	r.set.WritePrometheus(w)
}

// Handler returns an http.Handler serving this recorder's metrics plus
// process-wide metrics, for mounting at -metrics-listen's /metrics route.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	})
}
