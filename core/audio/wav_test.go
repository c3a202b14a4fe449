package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriteWAVHeader(t *testing.T) {
	samples := make([]byte, 480)

	var out bytes.Buffer
	if err := WriteWAV(&out, GetDefaultEncodingInfo(), samples); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data := out.Bytes()
	if len(data) != wavHeaderSize+len(samples) {
		t.Fatalf("expected %d bytes, got %d", wavHeaderSize+len(samples), len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		t.Fatalf("unexpected chunk ids in header: %q", data[:wavHeaderSize])
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != DefaultSampleRate {
		t.Fatalf("expected sample rate %d, got %d", DefaultSampleRate, rate)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Fatalf("expected 16 bits per sample, got %d", bits)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); size != uint32(len(samples)) {
		t.Fatalf("expected data size %d, got %d", len(samples), size)
	}
}

func TestWriteWAVRejectsUnknownEncoding(t *testing.T) {
	var out bytes.Buffer
	if err := WriteWAV(&out, EncodingInfo{SampleRate: 8000, Format: "opus"}, nil); err == nil {
		t.Fatalf("expected error for unsupported encoding")
	}
	if err := WriteWAV(&out, EncodingInfo{}, nil); err == nil {
		t.Fatalf("expected error for zero encoding")
	}
}
