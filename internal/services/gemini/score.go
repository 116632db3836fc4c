package gemini

// Score weights for the overall segment score. Viral potential and raw
// engagement dominate; emotion and quotability refine the ranking.
const (
	weightEngagement  = 0.3
	weightEmotion     = 0.2
	weightViral       = 0.3
	weightQuotability = 0.2
)

// OverallScore collapses the four submetrics into the single score the
// selector ranks by.
func OverallScore(a Analysis) float64 {
	return a.EngagementScore*weightEngagement +
		a.EmotionScore*weightEmotion +
		a.ViralPotential*weightViral +
		a.Quotability*weightQuotability
}
