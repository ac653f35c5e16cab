package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/rsaacc/accumulator/accumulator"
	"github.com/rsaacc/accumulator/metrics"
	"github.com/rsaacc/accumulator/store"
	"github.com/rsaacc/accumulator/update"
	"github.com/rsaacc/accumulator/wire"
)

// Handler answers the HTTP API's requests. Every mutating operation is
// serialized through ch to the single goroutine driving the Accumulator;
// read-only operations (verify, state) run inline since Accumulator.Verify
// and Z are already safe for concurrent use.
type Handler struct {
	acc     *accumulator.Accumulator
	st      store.Store
	ch      chan<- opRequest
	metrics *metrics.Collectors
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// requestCounter is mux middleware that increments Reqs for every request,
// labeled by path and final status code.
func requestCounter(m *metrics.Collectors) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			sw := &statusWriter{ResponseWriter: rw, status: http.StatusOK}
			next.ServeHTTP(sw, req)
			m.Reqs.WithLabelValues(req.URL.Path, fmt.Sprint(sw.status)).Inc()
		})
	}
}

func timed(m *metrics.Collectors, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	m.Observe(op, time.Since(start), err)
	return err
}

// Home reports that this is an accumulator server, mirroring the teacher's
// redirect-to-docs home handler but without a configured redirect target.
func (h *Handler) Home(rw http.ResponseWriter, req *http.Request) {
	fmt.Fprintln(rw, "accumulator server")
}

// Add adds the request body as a new element, holder-only.
func (h *Handler) Add(rw http.ResponseWriter, req *http.Request) {
	x, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	resp := make(chan opResponse, 1)
	h.ch <- opRequest{kind: opKindAdd, x: x, resp: resp}
	res := <-resp
	if res.err != nil {
		writeOpError(rw, res.err)
		return
	}

	raw, err := wire.EncodeWitness(h.acc.Digest(), res.witness)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Write(raw)
}

// Del deletes the element named by the request body's encoded Witness,
// holder-only.
func (h *Handler) Del(rw http.ResponseWriter, req *http.Request) {
	raw, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	w, _, err := wire.DecodeWitness(raw)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	resp := make(chan opResponse, 1)
	h.ch <- opRequest{kind: opKindDel, witness: w, resp: resp}
	res := <-resp
	if res.err != nil {
		writeOpError(rw, res.err)
		return
	}
	fmt.Fprintf(rw, "%x", res.z)
}

// Prove computes a fresh Witness for the request body's element, holder-only,
// without mutating the accumulation.
func (h *Handler) Prove(rw http.ResponseWriter, req *http.Request) {
	x, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	var w *accumulator.Witness
	err = timed(h.metrics, "prove", func() error {
		var proveErr error
		w, proveErr = h.acc.Prove(x)
		return proveErr
	})
	if err != nil {
		writeOpError(rw, err)
		return
	}
	raw, err := wire.EncodeWitness(h.acc.Digest(), w)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Write(raw)
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// Verify reports whether the request body's encoded Witness verifies against
// the current accumulation. Public.
func (h *Handler) Verify(rw http.ResponseWriter, req *http.Request) {
	raw, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	w, _, err := wire.DecodeWitness(raw)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	var valid bool
	timed(h.metrics, "verify", func() error {
		valid = h.acc.Verify(w)
		return nil
	})
	json.NewEncoder(rw).Encode(verifyResponse{Valid: valid})
}

// State returns the current (n, z) snapshot. Public.
func (h *Handler) State(rw http.ResponseWriter, req *http.Request) {
	snap := h.acc.Snapshot()
	raw, err := wire.EncodeSnapshot(snap)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Write(raw)
}

// Update replays the operations in [from, to) into an Update opened against
// the snapshot as of `to` (the state recorded before operation `to`, or the
// latest state when no operation `to` has been logged), and refreshes the
// request body's encoded Witness, valid as of `from`, through it. Public.
func (h *Handler) Update(rw http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	from, err := strconv.ParseUint(vars["from"], 10, 64)
	if err != nil {
		http.Error(rw, "bad 'from'", http.StatusBadRequest)
		return
	}
	to, err := strconv.ParseUint(vars["to"], 10, 64)
	if err != nil {
		http.Error(rw, "bad 'to'", http.StatusBadRequest)
		return
	}

	raw, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	w, _, err := wire.DecodeWitness(raw)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	snapAtTo, ok, err := h.st.GetSnapshotAtSeq(to)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		snapAtTo, ok, err = h.st.GetSnapshot()
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if !ok {
		http.Error(rw, "no snapshot recorded at that sequence number", http.StatusNotFound)
		return
	}

	ops, err := h.st.GetOps(from, to)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}

	u := update.Open(snapAtTo)
	for _, op := range ops {
		opW := &accumulator.Witness{X: op.X, Nonce: op.Nonce, W: new(big.Int)}
		if op.Kind == store.OpAdd {
			u.AbsorbAdd(opW)
		} else {
			u.AbsorbDel(opW)
		}
	}

	refreshed, err := u.Apply(w)
	if err != nil {
		writeOpError(rw, err)
		return
	}
	encoded, err := wire.EncodeWitness(h.acc.Digest(), refreshed)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Write(encoded)
}

func writeOpError(rw http.ResponseWriter, err error) {
	var accErr *accumulator.Error
	status := http.StatusInternalServerError
	if errors.As(err, &accErr) {
		switch accErr.Kind {
		case accumulator.WitnessInvalid, accumulator.UpdateMismatch, accumulator.BadArgument, accumulator.InvalidDivision:
			status = http.StatusBadRequest
		case accumulator.SecretRequired:
			status = http.StatusForbidden
		}
	}
	http.Error(rw, err.Error(), status)
}
