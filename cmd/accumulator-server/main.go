// Command accumulator-server runs the demo HTTP API in front of an RSA
// accumulator: a single holder (or public verifier) process answering
// add/del/prove/verify/update requests.
package main

import (
	"flag"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rsaacc/accumulator/metrics"
	"github.com/rsaacc/accumulator/store"
)

var (
	configFile = flag.String("config", "", "Location of config file.")
)

// Version is surfaced, together with the Go runtime version, through the
// build_info metric.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile | log.LUTC)
	flag.Parse()

	if *configFile == "" {
		log.Fatalf("No config file provided, see --help.")
	}
	config, err := ReadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}

	acc, err := config.newAccumulator()
	if err != nil {
		log.Fatalf("Failed to initialize accumulator: %v", err)
	}

	var st store.Store
	if config.StoreFile != "" {
		st, err = store.OpenLevelDB(config.StoreFile, config.digestProvider)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
	} else {
		st = store.NewMemoryStore()
	}

	m := metrics.New()
	m.Register(Version, runtime.Version())

	ch := make(chan opRequest)
	go inserter(acc, st, m, ch)

	if config.MetricsAddr != "" {
		go metrics.Serve(config.MetricsAddr)
	}

	h := &Handler{acc: acc, st: st, ch: ch, metrics: m}
	r := mux.NewRouter()
	r.Use(requestCounter(m))
	r.HandleFunc("/", h.Home)
	r.HandleFunc("/v1/add", h.Add).Methods(http.MethodPost)
	r.HandleFunc("/v1/del", h.Del).Methods(http.MethodPost)
	r.HandleFunc("/v1/prove", h.Prove).Methods(http.MethodPost)
	r.HandleFunc("/v1/verify", h.Verify).Methods(http.MethodPost)
	r.HandleFunc("/v1/state", h.State).Methods(http.MethodGet)
	r.HandleFunc("/v1/update/{from:[0-9]+}/{to:[0-9]+}", h.Update).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:      config.ServerAddr,
		Handler:   r,
		TLSConfig: config.tlsConfig,

		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	log.Println("Starting API server.")
	if config.tlsConfig == nil {
		log.Fatal(srv.ListenAndServe())
	} else {
		log.Fatal(srv.ListenAndServeTLS("", ""))
	}
}
