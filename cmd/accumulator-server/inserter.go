package main

import (
	"math/big"
	"time"

	"github.com/rsaacc/accumulator/accumulator"
	"github.com/rsaacc/accumulator/metrics"
	"github.com/rsaacc/accumulator/store"
)

type opKind int

const (
	opKindAdd opKind = iota
	opKindDel
)

type opRequest struct {
	kind    opKind
	x       []byte
	witness *accumulator.Witness
	resp    chan<- opResponse
}

type opResponse struct {
	witness *accumulator.Witness
	z       *big.Int
	err     error
}

// inserter is the single goroutine that mutates acc and persists the
// result: every add/del the HTTP handlers receive is serialized through ch,
// so acc's own single-threaded contract holds even though many HTTP
// requests can be in flight concurrently.
func inserter(acc *accumulator.Accumulator, st store.Store, m *metrics.Collectors, ch <-chan opRequest) {
	for req := range ch {
		start := time.Now()

		before := acc.Snapshot()
		var res opResponse

		switch req.kind {
		case opKindAdd:
			w, err := acc.Add(req.x)
			res = opResponse{witness: w, err: err}
		case opKindDel:
			z, err := acc.Del(req.witness)
			res = opResponse{z: z, err: err}
		}

		if res.err == nil {
			if err := persist(st, req, res, before, acc.Snapshot()); err != nil {
				res.err = err
			}
		}

		op := "add"
		if req.kind == opKindDel {
			op = "del"
		}
		m.Observe(op, time.Since(start), res.err)
		m.ZValue.Set(float64(acc.Z().BitLen()))

		req.resp <- res
	}
}

func persist(st store.Store, req opRequest, res opResponse, before, after accumulator.Snapshot) error {
	var logged store.Op
	switch req.kind {
	case opKindAdd:
		logged = store.Op{Kind: store.OpAdd, X: res.witness.X, Nonce: res.witness.Nonce}
	case opKindDel:
		logged = store.Op{Kind: store.OpDel, X: req.witness.X, Nonce: req.witness.Nonce}
	}

	seq, err := st.AppendOp(logged)
	if err != nil {
		return err
	}
	if err := st.PutSnapshotAtSeq(seq, before); err != nil {
		return err
	}
	if err := st.PutSnapshot(after); err != nil {
		return err
	}

	switch req.kind {
	case opKindAdd:
		if err := st.PutWitness(res.witness.X, res.witness); err != nil {
			return err
		}
	case opKindDel:
		if err := st.DeleteWitness(req.witness.X); err != nil {
			return err
		}
	}

	return st.Commit()
}
