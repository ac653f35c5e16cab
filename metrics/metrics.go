// Package metrics defines the Prometheus collectors an accumulator server
// registers and updates, and the debug/metrics HTTP server that exposes
// them.
package metrics

import (
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors holds every metric an accumulator server updates while
// answering requests. Registering the same *Collectors twice panics, the
// same as calling prometheus.MustRegister twice would.
type Collectors struct {
	BuildInfo *prometheus.GaugeVec

	Ops    *prometheus.CounterVec
	OpDur  *prometheus.HistogramVec
	Reqs   *prometheus.CounterVec
	ZValue prometheus.Gauge
}

// New constructs a fresh, unregistered set of collectors.
func New() *Collectors {
	return &Collectors{
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "accumulator_build_info",
				Help: "A metric with a constant '1' value labeled by version and goversion.",
			},
			[]string{"version", "goversion"},
		),
		Ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accumulator_operations_total",
				Help: "Incremented for each accumulator operation, labeled by kind and success.",
			},
			[]string{"op", "success"},
		),
		OpDur: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accumulator_operation_duration_seconds",
				Help:    "How long an accumulator operation takes to complete.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		Reqs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accumulator_requests_total",
				Help: "Incremented for each API request received.",
			},
			[]string{"path", "status"},
		),
		ZValue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "accumulator_z_bit_length",
				Help: "Bit length of the current accumulation value, sampled after each mutation.",
			},
		),
	}
}

// Register registers every collector with the default Prometheus registry.
func (c *Collectors) Register(version, goVersion string) {
	c.BuildInfo.WithLabelValues(version, goVersion).Set(1)
	prometheus.MustRegister(c.BuildInfo, c.Ops, c.OpDur, c.Reqs, c.ZValue)
}

// Observe records that op finished in dur, either successfully or not.
func (c *Collectors) Observe(op string, dur time.Duration, err error) {
	c.Ops.WithLabelValues(op, fmt.Sprint(err == nil)).Inc()
	c.OpDur.WithLabelValues(op).Observe(dur.Seconds())
}

// Serve starts a debug/metrics HTTP server at addr. It never returns.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(rw http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/" {
			fmt.Fprintln(rw, "Hi, I'm an accumulator metrics and debugging server!")
		} else {
			rw.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(rw, "404 not found")
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srv := &http.Server{Addr: addr, Handler: mux}
	log.Printf("Starting metrics server at: %v", addr)
	log.Fatal(srv.ListenAndServe())
}
