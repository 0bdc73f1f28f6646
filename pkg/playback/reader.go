package playback

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Reader iterates over the records of a recording file.
type Reader struct {
	file *os.File
	br   *bufio.Reader
	meta Metadata
}

// OpenReader opens a recording and parses its metadata header.
func OpenReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("playback: open recording: %w", err)
	}
	br := bufio.NewReader(file)

	hdr := make([]byte, metadataSize)
	if _, err := io.ReadFull(br, hdr); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("playback: read metadata: %w", err)
	}
	meta, err := decodeMetadata(hdr)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &Reader{file: file, br: br, meta: meta}, nil
}

// Metadata returns the recording's header.
func (r *Reader) Metadata() Metadata {
	return r.meta
}

// Next returns the next record, or io.EOF at the end of the file. A
// truncated trailing record is discarded and reported as io.EOF.
func (r *Reader) Next() (Record, error) {
	return readRecord(r.br)
}

func (r *Reader) Close() error {
	return r.file.Close()
}
