package moderation

import (
	"context"
	"regexp"
	"strings"

	"github.com/samujjwal/stayhub/internal/models"
)

// Flag type tags produced by the rule-based classifier.
const (
	FlagProfanity          = "PROFANITY"
	FlagHateSpeech         = "HATE_SPEECH"
	FlagSpam               = "SPAM"
	FlagOffPlatformContact = "OFF_PLATFORM_CONTACT"
	FlagScam               = "SCAM"
)

// flaggedConfidence is the aggregate confidence reported whenever at least
// one rule matched. It is a deliberate constant, not an average of the
// individual rule confidences.
const flaggedConfidence = 0.8

var (
	profanityRe = regexp.MustCompile(`(?i)\b(fuck\w*|shit\w*|bitch\w*|asshole|bastard|dickhead|cunt|wanker|motherfucker)\b`)

	hateSpeechRe = regexp.MustCompile(`(?i)(go back to your (country|own kind)|you people don'?t belong|all (of )?(them|you people) (are|should)|(gas|lynch|exterminate) (the|all)|subhuman|ethnic cleansing|white power|racial purity)`)

	// Four independent spam signal families. A spam flag requires at least
	// two of them to match, single-family hits are too noisy.
	spamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(buy now|act now|limited time|click here|order today|don'?t miss out)\b`),
		regexp.MustCompile(`(?i)\b(100% free|risk[ -]?free|no obligation|money back guarantee)\b`),
		regexp.MustCompile(`[A-Z]{10,}`),
		regexp.MustCompile(`(!{4,}|\?{4,}|\${4,})`),
	}

	contactRe = regexp.MustCompile(`(?i)(contact me (at|on|via)|text me|call me|whats?app|telegram|signal me|reach me (at|on)|book (direct|outside)|pay (me )?(directly|outside|off)|avoid (the )?(platform|service) fee)`)

	scamRe = regexp.MustCompile(`(?i)(wire transfer|western union|moneygram|advance (fee|payment) (only|required)|send (a )?deposit before|guaranteed (profit|return)|double your money|cashier'?s check|overpay|refund the difference)`)
)

// RuleTextClassifier scans text with fixed rule families. Each family
// produces at most one flag per pass, first match wins within the family.
type RuleTextClassifier struct {
	platformDomain string
}

// NewRuleTextClassifier builds a classifier. platformDomain exempts the
// marketplace's own links from the external-URL PII rule.
func NewRuleTextClassifier(platformDomain string) *RuleTextClassifier {
	return &RuleTextClassifier{platformDomain: strings.ToLower(platformDomain)}
}

// ClassifyText runs every rule family over the text and returns the
// accumulated flags. A clean pass reports confidence 1.
func (c *RuleTextClassifier) ClassifyText(ctx context.Context, text string) (*TextResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var flags []models.ModerationFlag

	if matches := profanityRe.FindAllString(text, -1); len(matches) > 0 {
		flags = append(flags, models.ModerationFlag{
			Type:        FlagProfanity,
			Severity:    models.SeverityMedium,
			Confidence:  0.9,
			Description: "Text contains profanity",
			Details:     map[string]any{"match_count": len(matches)},
		})
	}

	if hateSpeechRe.MatchString(text) {
		flags = append(flags, models.ModerationFlag{
			Type:        FlagHateSpeech,
			Severity:    models.SeverityCritical,
			Confidence:  0.85,
			Description: "Text matches hate speech patterns",
		})
	}

	spamHits := 0
	for _, p := range spamPatterns {
		if p.MatchString(text) {
			spamHits++
		}
	}
	if spamHits >= 2 {
		flags = append(flags, models.ModerationFlag{
			Type:        FlagSpam,
			Severity:    models.SeverityHigh,
			Confidence:  0.8,
			Description: "Text matches multiple spam patterns",
			Details:     map[string]any{"pattern_families": spamHits},
		})
	}

	if contactRe.MatchString(text) {
		flags = append(flags, models.ModerationFlag{
			Type:        FlagOffPlatformContact,
			Severity:    models.SeverityHigh,
			Confidence:  0.75,
			Description: "Text solicits off-platform contact",
		})
	}

	if scamRe.MatchString(text) {
		flags = append(flags, models.ModerationFlag{
			Type:        FlagScam,
			Severity:    models.SeverityCritical,
			Confidence:  0.7,
			Description: "Text matches known scam patterns",
		})
	}

	confidence := 1.0
	if len(flags) > 0 {
		confidence = flaggedConfidence
	}
	return &TextResult{Flags: flags, Confidence: confidence}, nil
}
