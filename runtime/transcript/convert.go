package transcript

import (
	"github.com/speechmatics/speechmatics-go-sdk/runtime/codec"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
)

// punctuationType is the ResultItem.Type that marks a trailing mark rather
// than a spoken word; it is folded into the preceding word's Punctuation
// field instead of becoming its own WordRef, since the segmentation
// engine's sentence-boundary rule inspects "the prior word's punctuation
// field".
const punctuationType = "punctuation"

func convertResults(results []codec.ResultItem, isFinal bool) []events.WordRef {
	words := make([]events.WordRef, 0, len(results))

	for _, item := range results {
		if item.Type == punctuationType {
			if len(words) > 0 && len(item.Alternatives) > 0 {
				words[len(words)-1].Punctuation += item.Alternatives[0].Content
			}
			continue
		}

		var alt codec.Alternative
		if len(item.Alternatives) > 0 {
			alt = item.Alternatives[0]
		}

		words = append(words, events.WordRef{
			Text:       alt.Content,
			StartTime:  item.StartTime,
			EndTime:    item.EndTime,
			Confidence: alt.Confidence,
			IsFinal:    isFinal,
			SpeakerID:  alt.Speaker,
			Language:   alt.Language,
		})
	}

	return words
}
