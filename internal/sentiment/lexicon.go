package sentiment

import (
	"math"
	"strings"
)

// LexiconName identifies the valence-lexicon analyzer.
const LexiconName = "lexicon"

func init() {
	Register(LexiconName, func() Analyzer { return NewLexiconAnalyzer() })
}

// valence maps sentiment-bearing words to scores in roughly [-3,3],
// following the intensity conventions of social-media valence lexicons.
var valence = map[string]float64{
	"love": 3.0, "loved": 3.0, "loves": 3.0, "adore": 2.9,
	"excellent": 2.7, "amazing": 2.8, "awesome": 2.8, "fantastic": 2.6,
	"wonderful": 2.7, "brilliant": 2.5, "great": 2.2, "best": 2.5,
	"good": 1.9, "nice": 1.8, "happy": 2.1, "glad": 1.9,
	"grateful": 2.0, "thanks": 1.5, "thank": 1.5, "like": 1.5,
	"enjoy": 1.9, "enjoyed": 1.9, "win": 1.7, "winning": 1.7,
	"beautiful": 2.2, "perfect": 2.7, "cool": 1.3, "fun": 1.9,
	"impressive": 2.0, "helpful": 1.7, "recommend": 1.6,

	"hate": -2.9, "hated": -2.9, "hates": -2.9, "despise": -2.8,
	"terrible": -2.6, "awful": -2.6, "horrible": -2.7, "worst": -2.8,
	"bad": -1.9, "poor": -1.7, "sad": -1.8, "angry": -2.1,
	"disappointed": -2.0, "disappointing": -2.0, "annoying": -1.8,
	"broken": -1.6, "useless": -2.2, "ugly": -1.9, "fail": -2.0,
	"failed": -2.0, "failure": -2.1, "wrong": -1.5, "problem": -1.3,
	"problems": -1.3, "bug": -1.2, "bugs": -1.2, "crash": -1.8,
	"scam": -2.5, "garbage": -2.3, "disaster": -2.4, "lose": -1.6,
	"losing": -1.6, "boring": -1.5, "slow": -1.1,
}

// boosters scale the valence of the word that follows them.
var boosters = map[string]float64{
	"very": 0.293, "really": 0.293, "extremely": 0.4, "absolutely": 0.35,
	"incredibly": 0.35, "so": 0.2, "totally": 0.3, "super": 0.3,
	"slightly": -0.2, "somewhat": -0.15, "barely": -0.3, "kinda": -0.2,
}

// negations flip the valence of the word that follows them.
var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "neither": {}, "nor": {},
	"cannot": {}, "cant": {}, "dont": {}, "doesnt": {}, "didnt": {},
	"wont": {}, "isnt": {}, "wasnt": {}, "arent": {}, "werent": {},
	"without": {},
}

// normalizationAlpha dampens the compound score; matches the constant used
// by the VADER family of lexicons.
const normalizationAlpha = 15.0

// LexiconAnalyzer scores text against a built-in valence lexicon with
// negation and booster handling. It produces a compound polarity in [-1,1].
type LexiconAnalyzer struct{}

// NewLexiconAnalyzer returns a lexicon-backed analyzer.
func NewLexiconAnalyzer() *LexiconAnalyzer {
	return &LexiconAnalyzer{}
}

// Name implements Analyzer.
func (a *LexiconAnalyzer) Name() string { return LexiconName }

// Analyze implements Analyzer.
func (a *LexiconAnalyzer) Analyze(text string) Score {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Score{}
	}

	var sum float64
	rated := 0
	exclaims := strings.Count(text, "!")

	for i, tok := range tokens {
		v, ok := valence[tok]
		if !ok {
			continue
		}
		rated++

		// Look back up to two tokens for negations and boosters.
		for back := 1; back <= 2 && i-back >= 0; back++ {
			prev := tokens[i-back]
			if _, neg := negations[prev]; neg {
				v *= -0.74
				continue
			}
			if boost, isBooster := boosters[prev]; isBooster {
				if v < 0 {
					v -= boost
				} else {
					v += boost
				}
			}
		}
		sum += v
	}

	if rated == 0 {
		return Score{Subjectivity: 0}
	}

	// Exclamation marks amplify whatever direction the text leans.
	if exclaims > 4 {
		exclaims = 4
	}
	if sum > 0 {
		sum += float64(exclaims) * 0.292
	} else if sum < 0 {
		sum -= float64(exclaims) * 0.292
	}

	compound := sum / math.Sqrt(sum*sum+normalizationAlpha)
	compound = clamp(compound, -1, 1)

	return Score{
		Polarity:     compound,
		Subjectivity: clamp(float64(rated)/float64(len(tokens))*2, 0, 1),
		Confidence:   confidenceFromPolarity(compound),
	}
}

// tokenize lowercases and splits text into word tokens, stripping
// punctuation but keeping intra-word apostrophe contractions collapsed
// ("don't" -> "dont") so negation lookups match.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '#', r == '@':
			b.WriteRune(r)
		case r == '\'':
			// drop
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}
