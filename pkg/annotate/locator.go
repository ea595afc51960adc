package annotate

import (
	"log/slog"
	"regexp"
	"strings"
)

// Position describes where a placeholder occurrence lives in document text:
// the verbatim placeholder plus the short prefix/suffix context the model
// observed around it, and an optional section label
type Position struct {
	Placeholder string `json:"placeholder"`
	Prefix      string `json:"prefix"`
	Suffix      string `json:"suffix"`
	Context     string `json:"context,omitempty"`
}

// Span is a half-open [Start, End) character range
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags removes HTML-like tags so that search operates on rendered text
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// Locate finds the best-guess span of a placeholder occurrence in text,
// trying progressively looser matches. Tiers, first hit wins:
//
//  1. prefix + placeholder + suffix over tag-stripped text
//  2. prefix + placeholder over tag-stripped text
//  3. placeholder alone over tag-stripped text
//  4. raw placeholder over raw text (handles over-stripped content)
//
// Returns nil when the occurrence cannot be located; callers must treat nil
// as "unlocated", not as an error. Missing placeholder, prefix or suffix is
// invalid input and short-circuits to nil without searching.
func Locate(text string, pos Position) *Span {
	if pos.Placeholder == "" || pos.Prefix == "" || pos.Suffix == "" {
		return nil
	}

	normText := StripTags(text)
	prefix := StripTags(pos.Prefix)
	placeholder := StripTags(pos.Placeholder)
	suffix := StripTags(pos.Suffix)

	// Normalization can strip the placeholder away entirely (e.g. a
	// placeholder that itself looks like a tag); only tier 4 applies then.
	if placeholder != "" {
		// Tier 1: full context match
		if span := matchLiteral(normText, prefix, placeholder, suffix); span != nil {
			return span
		}

		// Tier 2: drop the suffix requirement
		if span := matchLiteral(normText, prefix, placeholder, ""); span != nil {
			return span
		}

		// Tier 3: placeholder alone
		if idx := strings.Index(normText, placeholder); idx >= 0 {
			return &Span{Start: idx, End: idx + len(placeholder)}
		}
	}

	// Tier 4: raw placeholder in raw text, in case normalization stripped
	// something the placeholder itself depends on
	if idx := strings.Index(text, pos.Placeholder); idx >= 0 {
		return &Span{Start: idx, End: idx + len(pos.Placeholder)}
	}

	slog.Warn("placeholder not located in document text",
		"placeholder", pos.Placeholder,
		"prefix", pos.Prefix,
		"suffix", pos.Suffix,
	)
	return nil
}

// matchLiteral searches for prefix+placeholder+suffix as a literal pattern
// and returns the span covering only the placeholder portion. Every
// interpolated string is regexp-escaped so user/AI-supplied text cannot
// inject pattern syntax.
func matchLiteral(text, prefix, placeholder, suffix string) *Span {
	if placeholder == "" {
		return nil
	}
	pattern, err := regexp.Compile(
		regexp.QuoteMeta(prefix) + regexp.QuoteMeta(placeholder) + regexp.QuoteMeta(suffix))
	if err != nil {
		return nil
	}
	loc := pattern.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	start := loc[0] + len(prefix)
	return &Span{Start: start, End: start + len(placeholder)}
}
