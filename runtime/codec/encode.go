package codec

import (
	"encoding/json"

	"github.com/speechmatics/speechmatics-go-sdk/pkg/errors"
)

// Encode serializes an upstream control frame (StartRecognition,
// EndOfStream, SetRecognitionConfig, GetSpeakers) to JSON text.
func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Protocol("codec", "encode", err)
	}
	return data, nil
}

// EncodeAudio is the identity transform for outbound binary PCM frames — the
// wire protocol sends raw samples with no per-frame header. It exists so
// callers route all outbound framing through one package.
func EncodeAudio(pcm []byte) []byte {
	return pcm
}
