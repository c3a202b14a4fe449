package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

const wavHeaderSize = 44

// WriteWAV wraps raw mono samples in a WAVE container so the result can be
// played by anything that reads .wav files.
func WriteWAV(w io.Writer, info EncodingInfo, samples []byte) error {
	if info.IsZero() || info.Format.wavFormatCode() == 0 {
		return fmt.Errorf("unsupported encoding %q", info.Format)
	}

	const channels = 1
	sampleSize := info.Format.ByteSize()
	header := struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(wavHeaderSize - 8 + len(samples)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   info.Format.wavFormatCode(),
		NumChannels:   channels,
		SampleRate:    uint32(info.SampleRate),
		ByteRate:      uint32(info.SampleRate * channels * sampleSize),
		BlockAlign:    uint16(channels * sampleSize),
		BitsPerSample: uint16(sampleSize * 8),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(samples)),
	}

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}
	if _, err := w.Write(samples); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	return nil
}
