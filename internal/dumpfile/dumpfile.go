// Package dumpfile opens and creates console dump files, compressed with
// zstd when the name ends in .zst.
package dumpfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Ext marks a compressed dump.
const Ext = ".zst"

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type writer struct {
	enc  *zstd.Encoder
	file *os.File
}

func (w *writer) Write(p []byte) (int, error) { return w.enc.Write(p) }

func (w *writer) Close() error {
	if err := w.enc.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("flush compressed dump: %w", err)
	}
	return w.file.Close()
}

// Create creates path for writing. Closing the writer flushes and closes
// the file.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, Ext) {
		return f, nil
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	return &writer{enc: enc, file: f}, nil
}

type reader struct {
	io.Reader
	dec  *zstd.Decoder
	file *os.File
}

func (r *reader) Close() error {
	if r.dec != nil {
		r.dec.Close()
	}
	return r.file.Close()
}

// Open opens path for reading, decompressing it if it starts with a zstd
// frame whatever its name.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	head, err := br.Peek(len(zstdMagic))
	if err != nil || !bytes.Equal(head, zstdMagic) {
		// too short for a frame: let the dump parser report it
		return &reader{Reader: br, file: f}, nil
	}
	dec, err := zstd.NewReader(br)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}
	return &reader{Reader: dec, dec: dec, file: f}, nil
}
