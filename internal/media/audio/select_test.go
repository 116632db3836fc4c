package audio

import (
	"testing"

	"clipforge/internal/media/ffprobe"
)

func stream(index int, lang string, channels int) ffprobe.Stream {
	s := ffprobe.Stream{Index: index, CodecType: "audio", Channels: channels}
	if lang != "" {
		s.Tags = map[string]string{"language": lang}
	}
	return s
}

func TestSelectPrefersConfiguredLanguage(t *testing.T) {
	streams := []ffprobe.Stream{
		stream(1, "spa", 6),
		stream(2, "eng", 2),
	}

	selection := Select(streams, []string{"en", "es"})

	if selection.PrimaryIndex != 1 {
		t.Fatalf("expected English stream, got index %d", selection.PrimaryIndex)
	}
	if selection.Language != "eng" {
		t.Fatalf("language = %q", selection.Language)
	}
}

func TestSelectPrefersMoreChannelsWithinLanguage(t *testing.T) {
	streams := []ffprobe.Stream{
		stream(1, "eng", 2),
		stream(2, "eng", 6),
	}

	selection := Select(streams, []string{"en"})

	if selection.PrimaryIndex != 1 {
		t.Fatalf("expected 6-channel stream, got index %d", selection.PrimaryIndex)
	}
}

func TestSelectFallsBackToFirstAudioStream(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "video"},
		stream(3, "jpn", 2),
		stream(4, "kor", 2),
	}

	selection := Select(streams, []string{"en"})

	if selection.PrimaryIndex != 0 {
		t.Fatalf("expected first audio stream, got index %d", selection.PrimaryIndex)
	}
	if selection.Primary.Index != 3 {
		t.Fatalf("expected container stream 3, got %d", selection.Primary.Index)
	}
}

func TestSelectNoAudioStreams(t *testing.T) {
	streams := []ffprobe.Stream{{Index: 0, CodecType: "video"}}

	selection := Select(streams, []string{"en"})

	if selection.PrimaryIndex != -1 {
		t.Fatalf("expected -1 index, got %d", selection.PrimaryIndex)
	}
}

func TestSelectMatchesShortAndLongTags(t *testing.T) {
	streams := []ffprobe.Stream{
		stream(1, "fr", 2),
	}

	selection := Select(streams, []string{"fra"})

	if selection.PrimaryIndex != 0 {
		t.Fatalf("expected short tag to match long preference, got %d", selection.PrimaryIndex)
	}
}
