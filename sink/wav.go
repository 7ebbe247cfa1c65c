package sink

import (
	"encoding/binary"
	"io"
	"os"
)

// WAVWriter captures rendered audio as 16-bit stereo PCM. The header is
// written with placeholder sizes and patched on Close.
type WAVWriter struct {
	file       *os.File
	sampleRate int
	numSamples int
}

// NewWAVWriter creates path and writes the provisional header.
func NewWAVWriter(path string, sampleRate int) (*WAVWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &WAVWriter{file: file, sampleRate: sampleRate}
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func (w *WAVWriter) writeHeader() error {
	dataSize := uint32(w.numSamples * 2 * 2)
	header := []any{
		[]byte("RIFF"),
		uint32(36 + dataSize),
		[]byte("WAVE"),
		[]byte("fmt "),
		uint32(16),                    // PCM chunk size
		uint16(1),                     // PCM
		uint16(2),                     // stereo
		uint32(w.sampleRate),          // sample rate
		uint32(w.sampleRate * 2 * 2),  // byte rate
		uint16(4),                     // block align
		uint16(16),                    // bits per sample
		[]byte("data"),
		dataSize,
	}
	for _, field := range header {
		if err := binary.Write(w.file, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	return nil
}

// WriteSample appends one stereo sample; inputs are clamped to [-1, 1].
func (w *WAVWriter) WriteSample(left, right float64) error {
	if err := binary.Write(w.file, binary.LittleEndian, pcm16(left)); err != nil {
		return err
	}
	if err := binary.Write(w.file, binary.LittleEndian, pcm16(right)); err != nil {
		return err
	}
	w.numSamples++
	return nil
}

// Close patches the header sizes and closes the file.
func (w *WAVWriter) Close() error {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		w.file.Close()
		return err
	}
	if err := w.writeHeader(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func pcm16(sample float64) int16 {
	if sample > 1 {
		sample = 1
	} else if sample < -1 {
		sample = -1
	}
	return int16(sample * 32767)
}
