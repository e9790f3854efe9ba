// Package wav writes the RIFF/WAVE container used for every audio
// payload NewsBreeze hands to clients.
//
// Backends that emit raw 16-bit PCM (e.g. ElevenLabs' pcm_* output formats)
// are wrapped with [Encode] so the HTTP layer can always answer audio/wav.
package wav

import "encoding/binary"

// MIMEType is the content type of every payload produced by this package.
const MIMEType = "audio/wav"

// headerSize is the size of the canonical PCM header written by [Encode].
const headerSize = 44

// Format describes a PCM stream.
type Format struct {
	SampleRate    int // samples per second (e.g. 16000, 22050)
	Channels      int // 1 = mono, 2 = stereo
	BitsPerSample int // 16 for signed little-endian PCM
}

// Encode wraps pcm in a canonical 44-byte RIFF/WAVE header.
func Encode(pcm []byte, f Format) []byte {
	if f.BitsPerSample == 0 {
		f.BitsPerSample = 16
	}
	if f.Channels == 0 {
		f.Channels = 1
	}
	blockAlign := f.Channels * f.BitsPerSample / 8
	byteRate := f.SampleRate * blockAlign
	dataSize := uint32(len(pcm))

	buf := make([]byte, headerSize, headerSize+len(pcm))
	le := binary.LittleEndian

	copy(buf[0:4], "RIFF")
	le.PutUint32(buf[4:8], 36+dataSize)
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	le.PutUint32(buf[16:20], 16)
	le.PutUint16(buf[20:22], 1) // PCM
	le.PutUint16(buf[22:24], uint16(f.Channels))
	le.PutUint32(buf[24:28], uint32(f.SampleRate))
	le.PutUint32(buf[28:32], uint32(byteRate))
	le.PutUint16(buf[32:34], uint16(blockAlign))
	le.PutUint16(buf[34:36], uint16(f.BitsPerSample))

	copy(buf[36:40], "data")
	le.PutUint32(buf[40:44], dataSize)

	return append(buf, pcm...)
}
