// Package codec encodes and decodes the structured JSON control frames of
// the real-time transcription wire protocol, and frames outbound binary
// PCM audio. It performs no I/O; runtime/transport owns the socket.
package codec

// AudioFormat describes the raw PCM stream sent after StartRecognition.
type AudioFormat struct {
	Type       string `json:"type"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// AdditionalVocabItem is one entry of the additional_vocab list.
type AdditionalVocabItem struct {
	Content    string   `json:"content"`
	SoundsLike []string `json:"sounds_like,omitempty"`
}

// TranscriptionConfig is the recognized option set carried by
// StartRecognition and SetRecognitionConfig, per the configuration
// surface's recognized fields.
type TranscriptionConfig struct {
	Language                     string                `json:"language"`
	OperatingPoint               string                `json:"operating_point,omitempty"`
	Domain                       string                `json:"domain,omitempty"`
	OutputLocale                 string                `json:"output_locale,omitempty"`
	MaxDelay                     float64               `json:"max_delay,omitempty"`
	EndOfUtteranceSilenceTrigger float64               `json:"end_of_utterance_silence_trigger,omitempty"`
	EnableDiarization            bool                  `json:"enable_diarization,omitempty"`
	SpeakerSensitivity           float64               `json:"speaker_sensitivity,omitempty"`
	MaxSpeakers                  *int                  `json:"max_speakers,omitempty"`
	PreferCurrentSpeaker         bool                  `json:"prefer_current_speaker,omitempty"`
	KnownSpeakers                []KnownSpeaker        `json:"known_speakers,omitempty"`
	AdditionalVocab              []AdditionalVocabItem `json:"additional_vocab,omitempty"`
	PunctuationOverrides         map[string]any        `json:"punctuation_overrides,omitempty"`
	IncludeResults               bool                  `json:"include_results,omitempty"`
}

// KnownSpeaker is a pre-enrolled speaker identity handed to the server at
// StartRecognition so it can attribute words without a later SpeakersResult.
type KnownSpeaker struct {
	Label      string `json:"label"`
	SpeakerID  string `json:"speaker_identifiers,omitempty"`
}

// envelope is used to sniff the message discriminator before decoding the
// full payload into its specific type.
type envelope struct {
	Message string `json:"message"`
}

// Upstream message kinds.
const (
	MessageStartRecognition    = "StartRecognition"
	MessageEndOfStream         = "EndOfStream"
	MessageSetRecognitionCfg   = "SetRecognitionConfig"
	MessageGetSpeakers         = "GetSpeakers"
)

// Downstream message kinds.
const (
	MessageRecognitionStarted   = "RecognitionStarted"
	MessageAudioAdded           = "AudioAdded"
	MessageAddPartialTranscript = "AddPartialTranscript"
	MessageAddTranscript        = "AddTranscript"
	MessageEndOfUtterance       = "EndOfUtterance"
	MessageSpeakersResult       = "SpeakersResult"
	MessageInfo                 = "Info"
	MessageWarning              = "Warning"
	MessageError                = "Error"
	MessageEndOfTranscript      = "EndOfTranscript"
)

// StartRecognition is the first upstream frame, opening the session with
// the audio format and transcription config.
type StartRecognition struct {
	Message              string               `json:"message"`
	AudioFormat          AudioFormat          `json:"audio_format"`
	TranscriptionConfig  TranscriptionConfig  `json:"transcription_config"`
}

// NewStartRecognition builds a StartRecognition frame.
func NewStartRecognition(format AudioFormat, cfg TranscriptionConfig) *StartRecognition {
	return &StartRecognition{Message: MessageStartRecognition, AudioFormat: format, TranscriptionConfig: cfg}
}

// EndOfStream is the final upstream frame, declaring the total number of
// binary audio frames sent.
type EndOfStream struct {
	Message string `json:"message"`
	LastSeq int    `json:"last_seq_no"`
}

// NewEndOfStream builds an EndOfStream frame.
func NewEndOfStream(lastSeq int) *EndOfStream {
	return &EndOfStream{Message: MessageEndOfStream, LastSeq: lastSeq}
}

// SetRecognitionConfig updates the transcription config mid-session.
type SetRecognitionConfig struct {
	Message             string              `json:"message"`
	TranscriptionConfig TranscriptionConfig `json:"transcription_config"`
}

// NewSetRecognitionConfig builds a SetRecognitionConfig frame.
func NewSetRecognitionConfig(cfg TranscriptionConfig) *SetRecognitionConfig {
	return &SetRecognitionConfig{Message: MessageSetRecognitionCfg, TranscriptionConfig: cfg}
}

// GetSpeakers requests the current speaker mapping out-of-band.
type GetSpeakers struct {
	Message string `json:"message"`
}

// NewGetSpeakers builds a GetSpeakers frame.
func NewGetSpeakers() *GetSpeakers {
	return &GetSpeakers{Message: MessageGetSpeakers}
}

// RecognitionStarted acknowledges StartRecognition and carries the session id.
type RecognitionStarted struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Language string `json:"language,omitempty"`
}

// AudioAdded acknowledges receipt of one binary audio frame.
type AudioAdded struct {
	Message string `json:"message"`
	SeqNo   uint64 `json:"seq_no"`
}

// Alternative is one candidate transcription for a result item.
type Alternative struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
	Language   string  `json:"language,omitempty"`
}

// ResultItem is one word or punctuation mark within a transcript batch.
type ResultItem struct {
	Type         string        `json:"type"`
	StartTime    float64       `json:"start_time"`
	EndTime      float64       `json:"end_time"`
	IsEOS        bool          `json:"is_eos,omitempty"`
	Channel      string        `json:"channel,omitempty"`
	Alternatives []Alternative `json:"alternatives"`
}

// AddPartialTranscript carries a revisable batch of recognition results.
type AddPartialTranscript struct {
	Message string       `json:"message"`
	Results []ResultItem `json:"results"`
}

// AddTranscript carries a committed (final) batch of recognition results.
type AddTranscript struct {
	Message string       `json:"message"`
	Results []ResultItem `json:"results"`
}

// EndOfUtterance signals the service's own silence-based endpointing fired.
type EndOfUtterance struct {
	Message string `json:"message"`
}

// SpeakersResult carries the server's speaker-id-to-label mapping.
type SpeakersResult struct {
	Message  string              `json:"message"`
	Speakers map[string][]string `json:"speakers"`
}

// Info is a non-fatal informational notice from the server.
type Info struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Reason  string `json:"reason,omitempty"`
}

// Warning is a non-fatal server warning.
type Warning struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Reason  string `json:"reason,omitempty"`
}

// Error is a fatal server error; receipt terminates the session.
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Reason  string `json:"reason,omitempty"`
}

// EndOfTranscript marks clean completion of the downstream stream.
type EndOfTranscript struct {
	Message string `json:"message"`
}
