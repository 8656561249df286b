// Package tracelog is the concrete trace-file writer/reader satisfying
// engine.TraceWriter (spec.md §6, "Trace writer"): a batched, compressed,
// framed log of the events the recording engine and its ptrace driver
// emit (task creation, mapped regions, captured memory, named events).
//
// The framing mirrors the teacher's internal/timemachine log writer
// (header once, then a stream of record batches, each independently
// compressed) without its flatbuffers schema: batches here are a small
// hand-rolled binary encoding, since the set of record kinds is fixed and
// known, not an evolving cross-language wire format.
package tracelog

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/stealthrocket/synctrace/internal/engine"
)

// Compression selects the per-batch payload codec.
type Compression byte

const (
	Uncompressed Compression = iota
	Snappy
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	default:
		return "none"
	}
}

// magic identifies a synctrace log file; version allows the framing to
// evolve without breaking readers of older logs.
const (
	magic   = "SYNCTRACE"
	version = 1
)

// Record kinds, one per engine.TraceWriter method.
const (
	kindTaskCreated byte = iota + 1
	kindMappedRegion
	kindMemory
	kindEvent
)

// Record is the decoded form of one trace entry, used by readers
// (the cmd package's inspect command) that don't want to re-derive the
// engine's live types.
type Record struct {
	Kind      byte
	Tid       int
	ParentTid int // kindTaskCreated

	Region engine.MappedRegion // kindMappedRegion

	Addr engine.TraceeAddr // kindMemory
	Data []byte            // kindMemory

	Name    string // kindEvent
	Payload []byte // kindEvent
}

func encodeUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func encodeString(buf []byte, s string) []byte {
	buf = encodeUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func encodeBytes(buf []byte, b []byte) []byte {
	buf = encodeUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

func (r *Record) encode(buf []byte) []byte {
	buf = append(buf, r.Kind)
	buf = encodeUvarint(buf, uint64(r.Tid))
	switch r.Kind {
	case kindTaskCreated:
		buf = encodeUvarint(buf, uint64(r.ParentTid))
	case kindMappedRegion:
		buf = encodeString(buf, r.Region.File)
		buf = encodeUvarint(buf, uint64(r.Region.FileSize))
		buf = encodeUvarint(buf, uint64(r.Region.Start))
		buf = encodeUvarint(buf, uint64(r.Region.End))
		buf = encodeUvarint(buf, uint64(r.Region.PageOffset))
		var flags byte
		if r.Region.Shared {
			flags |= 1
		}
		if r.Region.Writable {
			flags |= 2
		}
		buf = append(buf, flags)
	case kindMemory:
		buf = encodeUvarint(buf, uint64(r.Addr))
		buf = encodeBytes(buf, r.Data)
	case kindEvent:
		buf = encodeString(buf, r.Name)
		buf = encodeBytes(buf, r.Payload)
	}
	return buf
}

type byteReader struct {
	b []byte
}

func (r *byteReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.b)
	if n <= 0 {
		return 0, fmt.Errorf("tracelog: truncated varint")
	}
	r.b = r.b[n:]
	return v, nil
}

func (r *byteReader) bytes(n uint64) ([]byte, error) {
	if uint64(len(r.b)) < n {
		return nil, fmt.Errorf("tracelog: truncated record (want %d, have %d)", n, len(r.b))
	}
	out := r.b[:n]
	r.b = r.b[n:]
	return out, nil
}

func (r *byteReader) string() (string, error) {
	n, err := r.uvarint()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *byteReader) blob() ([]byte, error) {
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	b, err := r.bytes(n)
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func decodeRecord(br *byteReader) (Record, error) {
	if len(br.b) == 0 {
		return Record{}, io.EOF
	}
	kind := br.b[0]
	br.b = br.b[1:]
	tid, err := br.uvarint()
	if err != nil {
		return Record{}, err
	}
	rec := Record{Kind: kind, Tid: int(tid)}
	switch kind {
	case kindTaskCreated:
		parent, err := br.uvarint()
		if err != nil {
			return Record{}, err
		}
		rec.ParentTid = int(parent)
	case kindMappedRegion:
		file, err := br.string()
		if err != nil {
			return Record{}, err
		}
		fileSize, err := br.uvarint()
		if err != nil {
			return Record{}, err
		}
		start, err := br.uvarint()
		if err != nil {
			return Record{}, err
		}
		end, err := br.uvarint()
		if err != nil {
			return Record{}, err
		}
		pageOffset, err := br.uvarint()
		if err != nil {
			return Record{}, err
		}
		if len(br.b) == 0 {
			return Record{}, fmt.Errorf("tracelog: truncated mapped-region flags")
		}
		flags := br.b[0]
		br.b = br.b[1:]
		rec.Region = engine.MappedRegion{
			File: file, FileSize: int64(fileSize),
			Start: engine.TraceeAddr(start), End: engine.TraceeAddr(end),
			PageOffset: int64(pageOffset),
			Shared:     flags&1 != 0, Writable: flags&2 != 0,
		}
	case kindMemory:
		addr, err := br.uvarint()
		if err != nil {
			return Record{}, err
		}
		data, err := br.blob()
		if err != nil {
			return Record{}, err
		}
		rec.Addr, rec.Data = engine.TraceeAddr(addr), data
	case kindEvent:
		name, err := br.string()
		if err != nil {
			return Record{}, err
		}
		payload, err := br.blob()
		if err != nil {
			return Record{}, err
		}
		rec.Name, rec.Payload = name, payload
	default:
		return Record{}, fmt.Errorf("tracelog: unknown record kind %d", kind)
	}
	return rec, nil
}

func compress(dst, src []byte, c Compression) []byte {
	switch c {
	case Snappy:
		return snappy.Encode(dst, src)
	case Zstd:
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
		out := enc.EncodeAll(src, dst[:0])
		enc.Close()
		return out
	default:
		return append(dst[:0], src...)
	}
}

func decompress(dst, src []byte, c Compression) ([]byte, error) {
	switch c {
	case Snappy:
		return snappy.Decode(dst, src)
	case Zstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, errors.Wrap(err, "tracelog: zstd reader")
		}
		defer dec.Close()
		return dec.DecodeAll(src, dst[:0])
	default:
		return append(dst[:0], src...), nil
	}
}
