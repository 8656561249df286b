package tracelog

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Header is the decoded form of a trace file's fixed leading bytes.
type Header struct {
	Version     byte
	Compression Compression
}

// Reader reads back a log written by Writer, one record at a time.
// This is the "replay" side's log input and also what the inspect
// subcommand walks to print a trace's contents (SPEC_FULL.md §10's
// replay/inspect supplement); this package never interprets record
// contents beyond framing, it only deframes and decompresses.
type Reader struct {
	br     *bufio.Reader
	Header Header

	batch []Record
	pos   int
}

// NewReader reads and validates the file header, then returns a Reader
// positioned at the first record batch.
func NewReader(in io.Reader) (*Reader, error) {
	br := bufio.NewReader(in)
	magicBuf := make([]byte, len(magic))
	if _, err := io.ReadFull(br, magicBuf); err != nil {
		return nil, errors.Wrap(err, "tracelog: reading magic")
	}
	if string(magicBuf) != magic {
		return nil, fmt.Errorf("tracelog: not a synctrace log (bad magic)")
	}
	verComp := make([]byte, 2)
	if _, err := io.ReadFull(br, verComp); err != nil {
		return nil, errors.Wrap(err, "tracelog: reading header")
	}
	return &Reader{
		br:     br,
		Header: Header{Version: verComp[0], Compression: Compression(verComp[1])},
	}, nil
}

// Next returns the next record, or io.EOF once the log is exhausted.
func (r *Reader) Next() (Record, error) {
	for r.pos >= len(r.batch) {
		if err := r.nextBatch(); err != nil {
			return Record{}, err
		}
	}
	rec := r.batch[r.pos]
	r.pos++
	return rec, nil
}

func (r *Reader) nextBatch() error {
	frameLen, err := binary.ReadUvarint(r.br)
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return errors.Wrap(err, "tracelog: reading frame length")
	}
	compressed := make([]byte, frameLen)
	if _, err := io.ReadFull(r.br, compressed); err != nil {
		return errors.Wrap(err, "tracelog: reading frame body")
	}
	raw, err := decompress(nil, compressed, r.Header.Compression)
	if err != nil {
		return errors.Wrap(err, "tracelog: decompressing frame")
	}

	br := &byteReader{b: raw}
	r.batch = r.batch[:0]
	r.pos = 0
	for len(br.b) > 0 {
		rec, err := decodeRecord(br)
		if err != nil {
			return errors.Wrap(err, "tracelog: decoding record")
		}
		r.batch = append(r.batch, rec)
	}
	return nil
}
