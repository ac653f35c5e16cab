// Package wire implements the persistent/on-the-wire encoding of
// Accumulators, Witnesses and Updates: fixed big-endian framing over a
// bytes.Buffer, in the same manual encoding/binary style the rest of this
// module's ancestry uses for its proof structures.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/rsaacc/accumulator/accumulator"
	"github.com/rsaacc/accumulator/digest"
	"github.com/rsaacc/accumulator/update"
)

// privateFlag marks an encoded Accumulator as carrying the holder's secret
// factorization.
const (
	publicFlag  byte = 0x00
	privateFlag byte = 0x01
)

func writeBigInt(buf *bytes.Buffer, n *big.Int) error {
	raw := n.Bytes()
	if len(raw) > 0xffffffff {
		return fmt.Errorf("wire: integer too large to encode: %d bytes", len(raw))
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(raw))); err != nil {
		return err
	}
	_, err := buf.Write(raw)
	return err
}

func readBigInt(r *bytes.Buffer) (*big.Int, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

func writeBytes(buf *bytes.Buffer, data []byte) error {
	if len(data) > 0xffffffff {
		return fmt.Errorf("wire: byte string too large to encode: %d bytes", len(data))
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := buf.Write(data)
	return err
}

func readBytes(r *bytes.Buffer) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EncodeWitness serializes w, tagged with the digest identifier it was
// produced under, and returns the encoding.
func EncodeWitness(d digest.Provider, w *accumulator.Witness) ([]byte, error) {
	if d.ID() == digest.IDCustom {
		return nil, accumulator.NewBadArgumentError("cannot encode a witness built from a custom, unnamed digest provider")
	}
	buf := &bytes.Buffer{}
	buf.WriteByte(d.ID())
	if err := writeBytes(buf, w.X); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, w.Nonce); err != nil {
		return nil, err
	}
	if err := writeBigInt(buf, w.W); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeWitness parses a witness previously produced by EncodeWitness,
// returning it alongside the digest provider it was tagged with.
func DecodeWitness(raw []byte) (*accumulator.Witness, digest.Provider, error) {
	buf := bytes.NewBuffer(raw)
	idByte, err := buf.ReadByte()
	if err != nil {
		return nil, nil, err
	}
	d, err := digest.FromID(idByte)
	if err != nil {
		return nil, nil, err
	}
	x, err := readBytes(buf)
	if err != nil {
		return nil, nil, err
	}
	var nonce uint64
	if err := binary.Read(buf, binary.BigEndian, &nonce); err != nil {
		return nil, nil, err
	}
	w, err := readBigInt(buf)
	if err != nil {
		return nil, nil, err
	}
	return &accumulator.Witness{X: x, Nonce: nonce, W: w}, d, nil
}

// EncodeSnapshot serializes an accumulator's public state (n, z, tagged
// digest and element-prime bit-length) but never its secret factorization: a
// snapshot is exactly what a public verifier needs.
func EncodeSnapshot(snap accumulator.Snapshot) ([]byte, error) {
	if snap.Digest.ID() == digest.IDCustom {
		return nil, accumulator.NewBadArgumentError("cannot encode a snapshot built from a custom, unnamed digest provider")
	}
	buf := &bytes.Buffer{}
	buf.WriteByte(snap.Digest.ID())
	if err := binary.Write(buf, binary.BigEndian, uint32(snap.PrimeBits)); err != nil {
		return nil, err
	}
	if err := writeBigInt(buf, snap.N); err != nil {
		return nil, err
	}
	if err := writeBigInt(buf, snap.Z); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot parses a snapshot previously produced by EncodeSnapshot.
func DecodeSnapshot(raw []byte) (accumulator.Snapshot, error) {
	buf := bytes.NewBuffer(raw)
	idByte, err := buf.ReadByte()
	if err != nil {
		return accumulator.Snapshot{}, err
	}
	d, err := digest.FromID(idByte)
	if err != nil {
		return accumulator.Snapshot{}, err
	}
	var primeBits uint32
	if err := binary.Read(buf, binary.BigEndian, &primeBits); err != nil {
		return accumulator.Snapshot{}, err
	}
	n, err := readBigInt(buf)
	if err != nil {
		return accumulator.Snapshot{}, err
	}
	z, err := readBigInt(buf)
	if err != nil {
		return accumulator.Snapshot{}, err
	}
	return accumulator.Snapshot{Digest: d, PrimeBits: int(primeBits), N: n, Z: z}, nil
}

// EncodeUpdate serializes u's public fields: modulus, snapshot z, and the
// two batch products. It does not carry the individual absorbed witnesses.
func EncodeUpdate(d digest.Provider, u *update.Update) ([]byte, error) {
	if d.ID() == digest.IDCustom {
		return nil, accumulator.NewBadArgumentError("cannot encode an update built from a custom, unnamed digest provider")
	}
	buf := &bytes.Buffer{}
	buf.WriteByte(d.ID())
	if err := binary.Write(buf, binary.BigEndian, uint32(u.PrimeBits())); err != nil {
		return nil, err
	}
	if err := writeBigInt(buf, u.N()); err != nil {
		return nil, err
	}
	if err := writeBigInt(buf, u.ZSnapshot()); err != nil {
		return nil, err
	}
	if err := writeBigInt(buf, u.PiAdd()); err != nil {
		return nil, err
	}
	if err := writeBigInt(buf, u.PiDel()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeUpdate parses an Update previously produced by EncodeUpdate.
func DecodeUpdate(raw []byte) (*update.Update, error) {
	buf := bytes.NewBuffer(raw)
	idByte, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}
	d, err := digest.FromID(idByte)
	if err != nil {
		return nil, err
	}
	var primeBits uint32
	if err := binary.Read(buf, binary.BigEndian, &primeBits); err != nil {
		return nil, err
	}
	n, err := readBigInt(buf)
	if err != nil {
		return nil, err
	}
	z, err := readBigInt(buf)
	if err != nil {
		return nil, err
	}
	piAdd, err := readBigInt(buf)
	if err != nil {
		return nil, err
	}
	piDel, err := readBigInt(buf)
	if err != nil {
		return nil, err
	}
	return update.FromParts(d, int(primeBits), n, z, piAdd, piDel), nil
}
