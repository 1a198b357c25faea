package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Quoted segments close only on the mark that opened them. Inside single
// quotes an apostrophe between two letters ("won't", "ETH's") is text.
const (
	singleQuoted = `'((?:\w['’]\w|[^'])+)'`
	doubleQuoted = `"([^"]+)"`
	curlyDouble  = `“([^”]+)”`
	curlySingle  = `‘((?:\w’\w|[^’])+)’`
)

// quotedPattern matches single, double and curly-quoted segments. A straight
// single quote only opens or closes at a word boundary.
var quotedPattern = regexp.MustCompile(`(?:^|\W)` + singleQuoted + `(?:\W|$)|` + doubleQuoted + `|` + curlyDouble + `|` + curlySingle)

// StripQuoted removes quoted segments so that user-authored text such as a
// market question cannot feed other fields or trigger operations.
func StripQuoted(text string) string {
	return quotedPattern.ReplaceAllString(text, " ")
}

func firstQuoted(text string) (string, bool) {
	m := quotedPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return strings.TrimSpace(g), true
		}
	}
	return "", false
}

const number = `(-?\d+(?:\.\d+)?)`

var (
	hexToken = regexp.MustCompile(`\b0x[0-9a-fA-F]*`)

	amountUnit   = regexp.MustCompile(`(?i)` + number + `\s*(?:MODE|tokens?|shares?)\b`)
	amountPrefix = regexp.MustCompile(`(?i)\b(?:with|amount(?:\s+of)?|of|spend|sell)\s+` + number + `\b`)

	outcomeWord = regexp.MustCompile(`(?i)\b(yes|no)\b`)
	outcomeNear = regexp.MustCompile(`(?i)\b(?:buy|sell|bet|back|take|pick|choose|outcome)\s+(?:on\s+|the\s+)?(yes|no)\b|\b(yes|no)\s+(?:positions?|shares?|tokens?|side|outcome)\b`)
	outcomeNum  = regexp.MustCompile(`(?i)\boutcome\s*(?:id)?\s*:?\s*(\d+)\b`)

	bpsPattern    = regexp.MustCompile(`(?i)\b(\d+)\s*(?:bps|basis\s+points?)\b`)
	impactPercent = regexp.MustCompile(`(?i)\b(?:impact|slippage)\s*(?:of|to|at)?\s*:?\s*(\d+(?:\.\d+)?)\s*%`)

	questionAsking = regexp.MustCompile(`(?i)\basking\s*:?\s*(?:` + doubleQuoted + `|` + singleQuoted + `|` + curlyDouble + `|` + curlySingle + `)`)
	questionLabel  = regexp.MustCompile(`(?i)\bquestion\s*:\s*(.+?)\s*$`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(?::\d{2})?(?:Z|[+-]\d{2}:\d{2})?`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*,?\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\bin\s+\d+\s+(?:minute|hour|day|week|month)s?\b`),
		regexp.MustCompile(`(?i)\b(?:tomorrow|next week)\b`),
		regexp.MustCompile(`\b\d{10}\b`),
	}

	outcomesList = regexp.MustCompile(`(?i)\b(?:outcomes|options)\s*:?\s*([^.;\n]+)`)
	liquidity    = regexp.MustCompile(`(?i)\b(?:initial\s+)?liquidity\s*(?:of)?\s*:?\s*(\d+(?:\.\d+)?)|(\d+(?:\.\d+)?)\s*(?:MODE\s+)?(?:of\s+)?(?:initial\s+)?liquidity\b`)
	feePattern   = regexp.MustCompile(`(?i)\bfee\s*(?:of)?\s*:?\s*(\d+)\b`)
	limitPattern = regexp.MustCompile(`(?i)\b(?:top|first|last|limit)\s+(\d+)\b`)
	minOut       = regexp.MustCompile(`(?i)\bmin(?:imum)?\s*(?:tokens?\s*|collateral\s*)?out(?:put)?\s*(?:of)?\s*:?\s*(\d+(?:\.\d+)?)`)
	collateral   = regexp.MustCompile(`(?i)\b(?:collateral|token)\s*(?:address)?\s*:?\s*(0x[0-9a-fA-F]*)`)
)

// hexTokens returns every 0x-prefixed token in text.
func hexTokens(text string) []string {
	return hexToken.FindAllString(text, -1)
}

// firstHex returns the first 0x token whose digit count is not skip. A token
// of the wrong length is still returned so that coercion reports it.
func firstHex(text string, skip int) (string, bool) {
	for _, tok := range hexTokens(text) {
		if len(tok)-2 == skip {
			continue
		}
		return tok, true
	}
	return "", false
}

func submatch(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return g, true
		}
	}
	return "", false
}

func matchAmount(text string) (string, bool) {
	if v, ok := submatch(amountUnit, text); ok {
		return v, true
	}
	return submatch(amountPrefix, text)
}

// matchOutcome prefers a yes/no attached to a trade verb or noun. Otherwise
// the last bare yes/no wins, so a leading "no rush" is not read as NO.
func matchOutcome(text string) (string, bool) {
	if v, ok := submatch(outcomeNear, text); ok {
		return strings.ToUpper(v), true
	}
	if all := outcomeWord.FindAllStringSubmatch(text, -1); len(all) > 0 {
		return strings.ToUpper(all[len(all)-1][1]), true
	}
	return submatch(outcomeNum, text)
}

func matchBps(text string) (string, bool) {
	if v, ok := submatch(bpsPattern, text); ok {
		return v, true
	}
	v, ok := submatch(impactPercent, text)
	if !ok {
		return "", false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return "", false
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).String(), true
}

// matchQuestion reads the question from the raw text, quotes included.
func matchQuestion(text string) (string, bool) {
	if v, ok := submatch(questionAsking, text); ok {
		return strings.TrimSpace(v), true
	}
	if v, ok := submatch(questionLabel, text); ok {
		v = strings.Trim(v, `'"“”‘’ `)
		return v, v != ""
	}
	return firstQuoted(text)
}

func matchDate(text string) (string, bool) {
	for _, re := range datePatterns {
		if v := re.FindString(text); v != "" {
			return v, true
		}
	}
	return "", false
}
