package gemini

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Keyword-driven heuristics used when the Gemini API is unavailable. Scores
// are deliberately conservative but never zero, so a transcript still yields
// a ranking.
var (
	engagementKeywords = []string{
		"amazing", "incredible", "wow", "shocking", "unbelievable", "funny", "hilarious",
		"awesome", "fantastic", "mind-blowing", "crazy", "insane", "epic", "legendary",
	}
	emotionKeywords = []string{
		"love", "hate", "excited", "surprised", "happy", "angry", "scared", "thrilled",
		"disappointed", "frustrated", "overwhelmed", "passionate", "emotional", "heartwarming",
	}
	viralKeywords = []string{
		"viral", "trending", "share", "like", "subscribe", "follow", "must-see", "breaking",
		"exclusive", "revealed", "secret", "exposed", "truth", "shocking",
	}
	quotableKeywords = []string{
		"said", "quote", "tells", "explains", "reveals", "admits", "confesses", "announces",
	}
)

var commonWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {}, "to": {},
	"for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"a": {}, "an": {}, "this": {}, "that": {},
}

// FallbackAnalysis scores a segment with keyword heuristics.
func FallbackAnalysis(text string) Analysis {
	lower := strings.ToLower(text)
	words := strings.Fields(text)

	engagement := keywordScore(lower, engagementKeywords, 0.15)
	emotion := keywordScore(lower, emotionKeywords, 0.15)
	viral := keywordScore(lower, viralKeywords, 0.2)
	quotability := keywordScore(lower, quotableKeywords, 0.2)

	// Segments near the sweet spot for a short clip get a bonus.
	var lengthBonus float64
	switch count := len(words); {
	case count >= 20 && count <= 50:
		lengthBonus = 0.2
	case count >= 10 && count <= 80:
		lengthBonus = 0.1
	}
	engagement = clampScore(engagement + lengthBonus)
	emotion = clampScore(emotion + lengthBonus)
	viral = clampScore(viral + lengthBonus)
	quotability = clampScore(quotability + lengthBonus)

	// Floors keep borderline content viable for ranking.
	engagement = max(engagement, 0.4)
	emotion = max(emotion, 0.3)
	viral = max(viral, 0.3)
	quotability = max(quotability, 0.2)

	emotions := detectEmotions(lower)
	return Analysis{
		EngagementScore: engagement,
		EmotionScore:    emotion,
		ViralPotential:  viral,
		Quotability:     quotability,
		Emotions:        emotions,
		Keywords:        meaningfulWords(words, 8),
		Reason:          fmt.Sprintf("Fallback analysis: %d words, detected %s content", len(words), strings.Join(emotions, ", ")),
	}
}

// FallbackMetadata builds clip metadata without the API.
func FallbackMetadata(segmentText, originalTitle string) Metadata {
	lower := strings.ToLower(segmentText)
	words := strings.Fields(segmentText)
	keyWords := meaningfulWords(words, 5)

	var prefix string
	switch {
	case containsAny(lower, "funny", "hilarious", "joke"):
		prefix = "Hilarious"
	case containsAny(lower, "shocking", "unbelievable", "incredible"):
		prefix = "Shocking"
	case containsAny(lower, "amazing", "awesome", "fantastic"):
		prefix = "Amazing"
	case containsAny(lower, "secret", "revealed", "truth"):
		prefix = "Revealed"
	default:
		prefix = "Must See"
	}

	titleCaser := cases.Title(language.English)
	var title string
	if len(keyWords) > 0 {
		title = truncate(prefix+": "+titleCaser.String(strings.Join(keyWords[:min(2, len(keyWords))], " ")), 60)
	} else {
		source := "Video"
		if fields := strings.Fields(originalTitle); len(fields) > 0 {
			source = fields[0]
		}
		title = truncate(prefix+" Moment from "+source, 60)
	}

	var description strings.Builder
	fmt.Fprintf(&description, "%s moment from: %s\n\n", prefix, originalTitle)
	quoted := segmentText
	if len(quoted) > 100 {
		quoted = quoted[:100] + "..."
	}
	fmt.Fprintf(&description, "%q\n\n", quoted)

	hashtags := []string{"#Shorts", "#Viral", "#MustWatch"}
	if containsAny(lower, "funny", "hilarious") {
		hashtags = append(hashtags, "#Funny", "#Comedy")
	}
	if containsAny(lower, "shocking", "unbelievable") {
		hashtags = append(hashtags, "#Shocking", "#Unbelievable")
	}
	if containsAny(lower, "amazing", "incredible") {
		hashtags = append(hashtags, "#Amazing", "#Incredible")
	}
	hashtags = append(hashtags, "#Trending", "#Entertainment")
	description.WriteString(strings.Join(hashtags, " "))

	tags := []string{"shorts", "viral", "trending", "entertainment", "mustsee"}
	if containsAny(lower, "funny", "comedy", "hilarious") {
		tags = append(tags, "funny", "comedy", "humor")
	}
	if containsAny(lower, "music", "song", "dance") {
		tags = append(tags, "music", "song", "dance")
	}
	if containsAny(lower, "food", "cooking", "recipe") {
		tags = append(tags, "food", "cooking", "recipe")
	}
	if containsAny(lower, "travel", "adventure") {
		tags = append(tags, "travel", "adventure")
	}
	for _, word := range keyWords[:min(3, len(keyWords))] {
		tags = append(tags, strings.ToLower(word))
	}

	return Metadata{
		Title:       title,
		Description: truncate(description.String(), 500),
		Tags:        dedupe(tags, 15),
	}
}

func keywordScore(lower string, keywords []string, weight float64) float64 {
	var hits int
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			hits++
		}
	}
	return clampScore(float64(hits) * weight)
}

func detectEmotions(lower string) []string {
	var emotions []string
	if containsAny(lower, "funny", "hilarious", "joke", "laugh") {
		emotions = append(emotions, "humor")
	}
	if containsAny(lower, "shocking", "surprised", "unexpected") {
		emotions = append(emotions, "surprise")
	}
	if containsAny(lower, "love", "heartwarming", "beautiful") {
		emotions = append(emotions, "inspiration")
	}
	if containsAny(lower, "angry", "frustrated", "hate") {
		emotions = append(emotions, "controversy")
	}
	if len(emotions) == 0 {
		emotions = []string{"general"}
	}
	if len(emotions) > 5 {
		emotions = emotions[:5]
	}
	return emotions
}

func meaningfulWords(words []string, limit int) []string {
	var picked []string
	for _, word := range words {
		if len(word) <= 3 {
			continue
		}
		if _, ok := commonWords[strings.ToLower(word)]; ok {
			continue
		}
		picked = append(picked, word)
		if len(picked) == limit {
			break
		}
	}
	return picked
}

func containsAny(lower string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func dedupe(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
		if len(out) == limit {
			break
		}
	}
	return out
}
