package codec

import (
	"encoding/json"

	"github.com/speechmatics/speechmatics-go-sdk/pkg/errors"
)

// Decode parses a downstream structured frame. It returns the message kind,
// the decoded payload (one of the downstream types in types.go), and an
// error.
//
// An unknown message kind is NOT an error: ok is false and err is nil,
// signaling the caller to log and ignore it for forward compatibility.
// Malformed JSON returns a protocol error, which is always fatal.
func Decode(data []byte) (kind string, payload any, ok bool, err error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, false, errors.Protocol("codec", "decode", err)
	}

	var target any
	switch env.Message {
	case MessageRecognitionStarted:
		target = &RecognitionStarted{}
	case MessageAudioAdded:
		target = &AudioAdded{}
	case MessageAddPartialTranscript:
		target = &AddPartialTranscript{}
	case MessageAddTranscript:
		target = &AddTranscript{}
	case MessageEndOfUtterance:
		target = &EndOfUtterance{}
	case MessageSpeakersResult:
		target = &SpeakersResult{}
	case MessageInfo:
		target = &Info{}
	case MessageWarning:
		target = &Warning{}
	case MessageError:
		target = &Error{}
	case MessageEndOfTranscript:
		target = &EndOfTranscript{}
	default:
		return env.Message, nil, false, nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return env.Message, nil, false, errors.Protocol("codec", "decode", err)
	}

	return env.Message, target, true, nil
}
