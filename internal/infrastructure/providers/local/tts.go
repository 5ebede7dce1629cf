package local

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/synthesis"
)

const (
	FallbackVoice = "fallback"
	TTSNote       = "This is a fallback response. For better audio quality, please configure API keys for Google Cloud or Azure Speech services."

	sampleRate    = 22050
	bitsPerSample = 16
	channels      = 1
)

// TTSAdapter returns silence of the estimated spoken length.
type TTSAdapter struct{}

// NewTTSAdapter returns the local text-to-speech fallback.
func NewTTSAdapter() *TTSAdapter {
	return &TTSAdapter{}
}

func (a *TTSAdapter) Name() string {
	return capability.LocalProvider
}

func (a *TTSAdapter) Execute(ctx context.Context, req synthesis.Request) (synthesis.Audio, error) {
	if err := ctx.Err(); err != nil {
		return synthesis.Audio{}, err
	}
	duration := synthesis.EstimateDurationSeconds(req.Text, req.Options.SpeakingRateOr())
	return synthesis.Audio{
		Content:         SilentWAV(duration),
		Format:          "wav",
		ContentType:     "audio/wav",
		Voice:           FallbackVoice,
		DurationSeconds: duration,
		Note:            TTSNote,
	}, nil
}

// SilentWAV encodes seconds of 16-bit mono PCM silence as a RIFF/WAVE file.
func SilentWAV(seconds float64) []byte {
	samples := int(seconds * sampleRate)
	dataSize := uint32(samples * channels * bitsPerSample / 8)
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)

	var buf bytes.Buffer
	buf.Grow(44 + int(dataSize))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, byteRate)
	_ = binary.Write(&buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
