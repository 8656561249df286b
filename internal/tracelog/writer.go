package tracelog

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/stealthrocket/synctrace/internal/buffer"
	"github.com/stealthrocket/synctrace/internal/engine"
)

var log = logrus.WithField("pkg", "tracelog")

// defaultBatchSize mirrors the teacher's LogRecordWriter batching: records
// accumulate until the batch reaches this size, then get flushed as one
// compressed frame, trading a little replay latency for much better
// compression ratios on repetitive memory captures.
const defaultBatchSize = 256

// Writer implements engine.TraceWriter, batching records and flushing
// them as compressed, length-prefixed frames. A nil *Writer is not valid;
// use NewWriter.
type Writer struct {
	mu          sync.Mutex
	out         io.Writer
	compression Compression
	batchSize   int

	pending []Record
	scratch []byte
	frames  buffer.Pool // pools the per-flush compressed-output buffer

	recordDecision engine.RecordDecision // what RecordMappedRegion answers
}

// NewWriter creates a Writer that compresses batches with compression and
// writes the file header immediately.
func NewWriter(out io.Writer, compression Compression) (*Writer, error) {
	w := &Writer{
		out:            out,
		compression:    compression,
		batchSize:      defaultBatchSize,
		recordDecision: engine.RecordInTrace,
	}
	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeHeader() error {
	buf := make([]byte, 0, 16)
	buf = append(buf, magic...)
	buf = append(buf, version)
	buf = append(buf, byte(w.compression))
	_, err := w.out.Write(buf)
	return errors.Wrap(err, "tracelog: writing header")
}

func (w *Writer) RecordTaskCreated(tid int, parentTid int) {
	w.append(Record{Kind: kindTaskCreated, Tid: tid, ParentTid: parentTid})
}

func (w *Writer) RecordMappedRegion(region engine.MappedRegion) engine.RecordDecision {
	w.mu.Lock()
	decision := w.recordDecision
	w.mu.Unlock()
	w.append(Record{Kind: kindMappedRegion, Region: region})
	return decision
}

func (w *Writer) RecordMemory(tid int, addr engine.TraceeAddr, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	w.append(Record{Kind: kindMemory, Tid: tid, Addr: addr, Data: cp})
}

func (w *Writer) RecordEvent(tid int, name string, payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	w.append(Record{Kind: kindEvent, Tid: tid, Name: name, Payload: cp})
}

func (w *Writer) append(r Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, r)
	if len(w.pending) >= w.batchSize {
		if err := w.flushLocked(); err != nil {
			log.WithError(err).Error("tracelog: flushing batch failed, subsequent records may be lost")
		}
	}
}

// Flush forces out any buffered records, even short of a full batch; the
// ptrace driver calls this when the tracee tree exits so the trailing
// partial batch isn't dropped.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}
	w.scratch = w.scratch[:0]
	for i := range w.pending {
		w.scratch = w.pending[i].encode(w.scratch)
	}

	out := w.frames.Get(int64(len(w.scratch)))
	defer w.frames.Put(out)
	compressed := compress(out.Data[:0], w.scratch, w.compression)

	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(compressed)))
	if _, err := w.out.Write(lenBuf[:n]); err != nil {
		return errors.Wrap(err, "tracelog: writing frame length")
	}
	if _, err := w.out.Write(compressed); err != nil {
		return errors.Wrap(err, "tracelog: writing frame body")
	}
	w.pending = w.pending[:0]
	return nil
}
