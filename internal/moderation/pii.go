package moderation

import (
	"context"
	"regexp"
	"strings"

	"github.com/samujjwal/stayhub/internal/models"
)

// Flag type tags produced by PII detection.
const (
	FlagEmailDetected = "EMAIL_DETECTED"
	FlagPhoneDetected = "PHONE_DETECTED"
	FlagSocialHandle  = "SOCIAL_HANDLE_DETECTED"
	FlagExternalLink  = "EXTERNAL_LINK_DETECTED"
)

// Placeholder tokens substituted for detected matches.
const (
	maskEmail  = "[EMAIL REMOVED]"
	maskPhone  = "[PHONE REMOVED]"
	maskHandle = "[HANDLE REMOVED]"
	maskLink   = "[LINK REMOVED]"
)

var (
	emailRe  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe  = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	handleRe = regexp.MustCompile(`(^|\s)@[a-zA-Z0-9_]{2,}\b`)
	urlRe    = regexp.MustCompile(`(https?://|www\.)[^\s<>"]+`)
)

// DetectPII extracts personally-identifying information from the text and
// returns a flag per detected category plus a masked copy of the input.
// Detection and classification are independent passes; callers that need
// both combine the flag lists themselves.
func (c *RuleTextClassifier) DetectPII(ctx context.Context, text string) (*PIIResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var flags []models.ModerationFlag
	masked := text

	if matches := emailRe.FindAllString(masked, -1); len(matches) > 0 {
		masked = emailRe.ReplaceAllString(masked, maskEmail)
		flags = append(flags, models.ModerationFlag{
			Type:        FlagEmailDetected,
			Severity:    models.SeverityHigh,
			Confidence:  0.95,
			Description: "Text contains an email address",
			Details:     map[string]any{"match_count": len(matches)},
		})
	}

	// URLs are masked before phone numbers so that digits inside a link
	// don't get double-replaced. The platform's own links are exempt.
	externalLinks := 0
	masked = urlRe.ReplaceAllStringFunc(masked, func(m string) string {
		if c.platformDomain != "" && strings.Contains(strings.ToLower(m), c.platformDomain) {
			return m
		}
		externalLinks++
		return maskLink
	})
	if externalLinks > 0 {
		flags = append(flags, models.ModerationFlag{
			Type:        FlagExternalLink,
			Severity:    models.SeverityMedium,
			Confidence:  0.9,
			Description: "Text contains links to external sites",
			Details:     map[string]any{"match_count": externalLinks},
		})
	}

	if matches := phoneRe.FindAllString(masked, -1); len(matches) > 0 {
		masked = phoneRe.ReplaceAllString(masked, maskPhone)
		flags = append(flags, models.ModerationFlag{
			Type:        FlagPhoneDetected,
			Severity:    models.SeverityHigh,
			Confidence:  0.9,
			Description: "Text contains a phone number",
			Details:     map[string]any{"match_count": len(matches)},
		})
	}

	if matches := handleRe.FindAllString(masked, -1); len(matches) > 0 {
		masked = handleRe.ReplaceAllStringFunc(masked, func(m string) string {
			// Keep the leading whitespace captured by the pattern.
			idx := strings.Index(m, "@")
			return m[:idx] + maskHandle
		})
		flags = append(flags, models.ModerationFlag{
			Type:        FlagSocialHandle,
			Severity:    models.SeverityMedium,
			Confidence:  0.8,
			Description: "Text contains a social media handle",
			Details:     map[string]any{"match_count": len(matches)},
		})
	}

	return &PIIResult{Flags: flags, MaskedText: masked}, nil
}
