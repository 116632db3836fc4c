package audio

import (
	"strings"

	"clipforge/internal/media/ffprobe"
)

// Selection describes the audio stream chosen for transcription.
// PrimaryIndex is the stream's position among the audio streams, suitable for
// an ffmpeg "0:a:N" map, or -1 when the container has no audio.
type Selection struct {
	Primary      ffprobe.Stream
	PrimaryIndex int
	Language     string
}

// Select picks the audio stream to transcribe. Streams tagged with one of the
// preferred languages win, in preference order; among equals the stream with
// more channels is assumed to carry the main program. When no stream matches
// a preferred language the first audio stream is used.
func Select(streams []ffprobe.Stream, preferredLanguages []string) Selection {
	audio := make([]ffprobe.Stream, 0, len(streams))
	for _, stream := range streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			audio = append(audio, stream)
		}
	}
	if len(audio) == 0 {
		return Selection{PrimaryIndex: -1}
	}

	for _, lang := range preferredLanguages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		best := -1
		for i, stream := range audio {
			if !languageMatches(stream.Language(), lang) {
				continue
			}
			if best == -1 || stream.Channels > audio[best].Channels {
				best = i
			}
		}
		if best >= 0 {
			chosen := audio[best]
			return Selection{Primary: chosen, PrimaryIndex: best, Language: chosen.Language()}
		}
	}

	chosen := audio[0]
	return Selection{Primary: chosen, PrimaryIndex: 0, Language: chosen.Language()}
}

// languageMatches treats two-letter and three-letter tags for the same
// language as equivalent (en vs eng, es vs spa).
func languageMatches(tag, preferred string) bool {
	if tag == "" {
		return false
	}
	if tag == preferred {
		return true
	}
	if alias, ok := languageAliases[tag]; ok && alias == preferred {
		return true
	}
	if alias, ok := languageAliases[preferred]; ok && alias == tag {
		return true
	}
	return false
}

var languageAliases = map[string]string{
	"eng": "en",
	"spa": "es",
	"fra": "fr",
	"fre": "fr",
	"deu": "de",
	"ger": "de",
	"ita": "it",
	"por": "pt",
	"rus": "ru",
	"jpn": "ja",
	"kor": "ko",
	"zho": "zh",
	"chi": "zh",
}
