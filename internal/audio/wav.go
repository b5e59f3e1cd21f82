package audio

import (
	"bytes"
	"encoding/binary"
	"os"
)

const DefaultSampleRate = 16000

// IsWAV reports whether b starts with a RIFF/WAVE header.
func IsWAV(b []byte) bool {
	return len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE"))
}

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
		audioFormat   = 1 // PCM
	)
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * numChannels * bitsPerSample / 8)
	blockAlign := uint16(numChannels * bitsPerSample / 8)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36)+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(audioFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)
	return buf.Bytes()
}

// WriteWAVFile writes audio to path, wrapping raw PCM in a WAV container
// when it is not already one.
func WriteWAVFile(path string, data []byte, sampleRate int) error {
	if !IsWAV(data) {
		data = EncodeWAVPCM16LE(data, sampleRate)
	}
	return os.WriteFile(path, data, 0o644)
}
