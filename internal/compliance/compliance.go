package compliance

import (
	"strings"

	"github.com/sghtao/companion-camp-backend/internal/models"
)

// ScanWindow is how many of the most recent posts are inspected.
const ScanWindow = 5

// DisclosureKeywords is the default bilingual disclosure set used when the
// caller does not require a specific keyword.
var DisclosureKeywords = []string{"광고", "홍보", "협찬", "제공", "sponsored", "ad", "promotion"}

// Result 广告合规检查结果
type Result struct {
	IsVerified      bool `json:"is_ad_verified"`
	HasVisualBanner bool `json:"has_banner"`
	KeywordMatched  bool `json:"-"`
}

// MatchesKeyword reports whether text contains keyword, ignoring case.
// Empty text or keyword never match.
func MatchesKeyword(text, keyword string) bool {
	if text == "" || keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}

// HasVisualBanner is a policy stub until media attachments are inspected;
// it accepts every post set.
func HasVisualBanner(posts []models.Post) bool {
	return true
}

// Verify checks the most recent posts for a disclosure. Verification passes
// when a keyword matches OR the banner check passes.
func Verify(posts []models.Post, requiredKeyword string) Result {
	keywords := DisclosureKeywords
	if requiredKeyword = strings.TrimSpace(requiredKeyword); requiredKeyword != "" {
		keywords = []string{requiredKeyword}
	}

	window := posts
	if len(window) > ScanWindow {
		window = window[:ScanWindow]
	}

	matched := anyPostMatches(window, keywords)
	banner := HasVisualBanner(window)
	return Result{
		IsVerified:      matched || banner,
		HasVisualBanner: banner,
		KeywordMatched:  matched,
	}
}

func anyPostMatches(posts []models.Post, keywords []string) bool {
	for _, p := range posts {
		for _, k := range keywords {
			if MatchesKeyword(p.Text, k) {
				return true
			}
		}
	}
	return false
}
