package segmentation

import (
	"strings"

	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
)

// Annotation labels derivable from a segment's word sequence.
const (
	AnnotationHasPartial          = "has_partial"
	AnnotationHasFinal            = "has_final"
	AnnotationStartsWithFinal     = "starts_with_final"
	AnnotationEndsWithFinal       = "ends_with_final"
	AnnotationEndsWithPunctuation = "ends_with_punctuation"
	AnnotationEndsWithEOS         = "ends_with_eos"
	AnnotationFastSpeaker         = "fast_speaker"
	AnnotationHasDisfluency       = "has_disfluency"
)

// snapshot renders a segment's current state into the wire-shaped
// SegmentData, including its derived annotation set. eosOverride forces
// ends_with_eos (used when the engine closed a segment explicitly on a
// sentence boundary that occurs in the word AFTER this segment's tail).
func (e *Engine) snapshot(seg *segment, eosOverride bool) events.SegmentData {
	words := seg.words
	ann := deriveAnnotations(words, e.cfg.fastSpeakerWPS(), e.cfg.disfluencies(), eosOverride)

	return events.SegmentData{
		SpeakerID:   seg.speakerID,
		IsActive:    e.cfg.active(seg.speakerID),
		Language:    languageOf(words),
		Text:        seg.text(),
		StartTime:   seg.startTime(),
		EndTime:     seg.endTime(),
		Annotations: ann,
		Words:       append([]events.WordRef(nil), words...),
	}
}

func deriveAnnotations(words []events.WordRef, fastWPS float64, disfluencies map[string]struct{}, eosOverride bool) []string {
	if len(words) == 0 {
		return nil
	}

	var hasPartial, hasFinal bool
	for _, w := range words {
		if w.IsFinal {
			hasFinal = true
		} else {
			hasPartial = true
		}
	}

	first, last := words[0], words[len(words)-1]

	var ann []string
	if hasPartial {
		ann = append(ann, AnnotationHasPartial)
	}
	if hasFinal {
		ann = append(ann, AnnotationHasFinal)
	}
	if first.IsFinal {
		ann = append(ann, AnnotationStartsWithFinal)
	}
	if last.IsFinal {
		ann = append(ann, AnnotationEndsWithFinal)
	}
	if last.Punctuation != "" {
		ann = append(ann, AnnotationEndsWithPunctuation)
	}
	if eosOverride || strings.ContainsAny(last.Punctuation, ".?!") {
		ann = append(ann, AnnotationEndsWithEOS)
	}
	if isFastSpeaker(words, fastWPS) {
		ann = append(ann, AnnotationFastSpeaker)
	}
	if hasDisfluency(words, disfluencies) {
		ann = append(ann, AnnotationHasDisfluency)
	}

	return ann
}

func isFastSpeaker(words []events.WordRef, thresholdWPS float64) bool {
	if len(words) < 2 {
		return false
	}
	duration := words[len(words)-1].EndTime - words[0].StartTime
	if duration <= 0 {
		return false
	}
	wps := float64(len(words)) / duration
	return wps > thresholdWPS
}

func hasDisfluency(words []events.WordRef, disfluencies map[string]struct{}) bool {
	for _, w := range words {
		if _, found := disfluencies[strings.ToLower(strings.TrimSpace(w.Text))]; found {
			return true
		}
	}
	return false
}

func languageOf(words []events.WordRef) string {
	for i := len(words) - 1; i >= 0; i-- {
		if words[i].Language != "" {
			return words[i].Language
		}
	}
	return ""
}
