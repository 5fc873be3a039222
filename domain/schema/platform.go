package schema

import "strings"

// Platform identifiers
const (
	PlatformGoogleAds   = "google_ads"
	PlatformMetaAds     = "meta_ads"
	PlatformTikTokAds   = "tiktok_ads"
	PlatformLinkedInAds = "linkedin_ads"
	PlatformUnknown     = "unknown"
)

// MinPlatformConfidence is the overlap below which a table is not attributed to any platform
const MinPlatformConfidence = 0.2

// Fingerprint lists the lowercase substrings that identify a platform's export headers
type Fingerprint struct {
	Platform    string
	Identifiers []string
}

// fingerprints are checked in order; on equal scores the earlier platform wins
var fingerprints = []Fingerprint{
	{PlatformGoogleAds, []string{"campaign", "ad group", "keyword", "clicks", "impressions", "cost", "ctr"}},
	{PlatformMetaAds, []string{"campaign name", "ad set name", "ad name", "campaign_id", "reach", "frequency"}},
	{PlatformTikTokAds, []string{"campaign_name", "adgroup_name", "ad_name", "campaign_id"}},
	{PlatformLinkedInAds, []string{"campaign name", "campaign group", "creative name"}},
}

// Fingerprints returns the platform fingerprints in precedence order
func Fingerprints() []Fingerprint {
	out := make([]Fingerprint, len(fingerprints))
	copy(out, fingerprints)
	return out
}

// DetectPlatform guesses the source platform from column names. The score of a platform is
// the fraction of its identifiers contained in at least one lowercased column name. The
// result is independent of column order.
func DetectPlatform(columns []string) (string, float64) {
	lowered := make([]string, len(columns))
	for i, c := range columns {
		lowered[i] = strings.ToLower(c)
	}

	best, bestScore := PlatformUnknown, 0.0
	for _, fp := range fingerprints {
		matches := 0
		for _, id := range fp.Identifiers {
			for _, col := range lowered {
				if strings.Contains(col, id) {
					matches++
					break
				}
			}
		}
		score := float64(matches) / float64(len(fp.Identifiers))
		if score > bestScore {
			best, bestScore = fp.Platform, score
		}
	}

	if bestScore < MinPlatformConfidence {
		return PlatformUnknown, 0
	}
	return best, bestScore
}
