// Package router classifies free-text requests into operating modes and
// asks the lifecycle manager to guarantee a serving model for each one.
package router

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"modelgate/pkg/types"
)

// Scoring weights. Patterns are strong signals, keywords weak ones; the
// heuristic nudges break ties for short or question-shaped messages.
const (
	patternWeight     = 2.0
	keywordWeight     = 0.5
	questionNudge     = 0.5
	shortMessageNudge = 1.0
	shortMessageWords = 10

	// Below this score no mode has a real signal and the default wins.
	signalThreshold   = 1.0
	defaultConfidence = 0.8
	maxConfidence     = 0.95
)

// patternSignal is one compiled regex plus the hint name reported when it
// contributes to a decision.
type patternSignal struct {
	re   *regexp.Regexp
	hint string
}

// modeSignals holds compiled detection tables for one mode.
type modeSignals struct {
	patterns []patternSignal
	keywords map[string]bool
}

// Detector scores text against per-mode pattern and keyword tables.
// Tables are compiled once at construction; detection is deterministic
// and holds no state.
type Detector struct {
	signals     map[types.Mode]modeSignals
	defaultMode types.Mode
}

// NewDetector compiles the built-in detection tables.
func NewDetector() *Detector {
	mk := func(patterns []patternSignal, keywords ...string) modeSignals {
		s := modeSignals{patterns: patterns, keywords: make(map[string]bool, len(keywords))}
		for _, k := range keywords {
			s.keywords[k] = true
		}
		return s
	}
	p := func(hint, expr string) patternSignal {
		return patternSignal{re: regexp.MustCompile("(?i)" + expr), hint: hint}
	}
	return &Detector{
		defaultMode: types.ModeChat,
		signals: map[types.Mode]modeSignals{
			types.ModeCode: mk(
				[]patternSignal{
					p("code-block", "```"),
					p("code-request", `\b(write|fix|debug|refactor|implement|review)\b.{0,40}\b(code|function|script|class|method|test)\b`),
					p("error-report", `\b(stack trace|compile error|segfault|null pointer)\b`),
				},
				"code", "function", "bug", "debug", "compile", "refactor",
				"script", "golang", "python", "javascript", "test", "api",
			),
			types.ModeReasoning: mk(
				[]patternSignal{
					p("step-by-step", `\bstep[ -]by[ -]step\b`),
					p("think-through", `\b(think|reason) through\b`),
					p("formal", `\b(prove|derive|deduce)\b`),
				},
				"why", "analyze", "compare", "evaluate", "plan", "strategy",
				"logic", "math", "calculate", "reason", "tradeoff",
			),
			types.ModeCreative: mk(
				[]patternSignal{
					p("writing-request", `\b(write|compose|draft)\b.{0,30}\b(story|poem|song|haiku|essay|tale)\b`),
					p("story-opening", `\bonce upon a time\b`),
				},
				"story", "poem", "creative", "imagine", "fiction",
				"lyrics", "haiku", "novel", "character",
			),
			types.ModeExplain: mk(
				[]patternSignal{
					p("how-question", `\bhow (do|does|can|to)\b`),
					p("what-question", `\bwhat (is|are|does)\b`),
					p("explain-request", `\bexplain\b`),
				},
				"explain", "help", "understand", "meaning", "tutorial",
				"guide", "documentation", "difference",
			),
			types.ModeChat: mk(nil,
				"hi", "hello", "hey", "thanks", "ok",
			),
		},
	}
}

// Detection is the outcome of classifying one message.
type Detection struct {
	Mode       types.Mode
	Confidence float64
	Reasoning  string
	Keywords   []string
}

var tokenRe = regexp.MustCompile(`[a-z0-9']+`)

// Detect scores the text for every mode and returns the winner. A best
// score under the signal threshold falls back to the default mode with a
// fixed confidence and no keywords.
func (d *Detector) Detect(text string) Detection {
	lower := strings.ToLower(text)
	tokens := make(map[string]bool)
	for _, tok := range tokenRe.FindAllString(lower, -1) {
		tokens[tok] = true
	}
	wordCount := len(strings.Fields(text))

	scores := make(map[types.Mode]float64, len(d.signals))
	hits := make(map[types.Mode][]string, len(d.signals))
	for mode, sig := range d.signals {
		var score float64
		for _, ps := range sig.patterns {
			if ps.re.MatchString(text) {
				score += patternWeight
				hits[mode] = append(hits[mode], ps.hint)
			}
		}
		// Deterministic keyword order.
		kws := make([]string, 0, len(sig.keywords))
		for k := range sig.keywords {
			kws = append(kws, k)
		}
		sort.Strings(kws)
		for _, k := range kws {
			if tokens[k] {
				score += keywordWeight
				hits[mode] = append(hits[mode], k)
			}
		}
		scores[mode] = score
	}
	if strings.Contains(text, "?") {
		scores[types.ModeExplain] += questionNudge
	}
	if wordCount < shortMessageWords {
		scores[d.defaultMode] += shortMessageNudge
	}

	best := d.defaultMode
	bestScore, secondScore := -1.0, -1.0
	for _, mode := range types.Modes() {
		s := scores[mode]
		switch {
		case s > bestScore:
			secondScore = bestScore
			best, bestScore = mode, s
		case s > secondScore:
			secondScore = s
		}
	}

	if bestScore < signalThreshold {
		return Detection{
			Mode:       d.defaultMode,
			Confidence: defaultConfidence,
			Reasoning:  "no strong signal detected, using default mode",
		}
	}
	margin := bestScore - secondScore
	conf := 0.5 + margin*0.15
	if conf > maxConfidence {
		conf = maxConfidence
	}
	return Detection{
		Mode:       best,
		Confidence: conf,
		Reasoning:  fmt.Sprintf("detected mode=%s (score %.1f, margin %.1f)", best, bestScore, margin),
		Keywords:   hits[best],
	}
}
