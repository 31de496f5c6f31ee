package sentiment

// PatternName identifies the word-polarity averaging analyzer.
const PatternName = "pattern"

func init() {
	Register(PatternName, func() Analyzer { return NewPatternAnalyzer() })
}

// wordSentiment holds per-word polarity and subjectivity in the style of
// pattern-based analyzers: polarity in [-1,1], subjectivity in [0,1].
type wordSentiment struct {
	polarity     float64
	subjectivity float64
}

var patternLexicon = map[string]wordSentiment{
	"good":         {0.7, 0.6},
	"great":        {0.8, 0.75},
	"excellent":    {1.0, 1.0},
	"amazing":      {0.6, 0.9},
	"awesome":      {1.0, 1.0},
	"wonderful":    {1.0, 1.0},
	"best":         {1.0, 0.3},
	"better":       {0.5, 0.5},
	"nice":         {0.6, 1.0},
	"happy":        {0.8, 1.0},
	"love":         {0.5, 0.6},
	"beautiful":    {0.85, 1.0},
	"perfect":      {1.0, 1.0},
	"interesting":  {0.5, 0.5},
	"fun":          {0.3, 0.2},
	"helpful":      {0.4, 0.3},
	"fast":         {0.2, 0.3},
	"bad":          {-0.7, 0.67},
	"terrible":     {-1.0, 1.0},
	"awful":        {-1.0, 1.0},
	"horrible":     {-1.0, 1.0},
	"worst":        {-1.0, 0.3},
	"worse":        {-0.5, 0.5},
	"sad":          {-0.5, 1.0},
	"hate":         {-0.8, 0.9},
	"angry":        {-0.5, 1.0},
	"ugly":         {-0.7, 1.0},
	"boring":       {-0.8, 1.0},
	"broken":       {-0.4, 0.4},
	"slow":         {-0.3, 0.4},
	"useless":      {-0.5, 0.4},
	"disappointed": {-0.75, 0.75},
	"wrong":        {-0.5, 0.5},
}

// PatternAnalyzer averages per-word polarity and subjectivity over the
// sentiment-bearing words in the text.
type PatternAnalyzer struct{}

// NewPatternAnalyzer returns a pattern-style analyzer.
func NewPatternAnalyzer() *PatternAnalyzer {
	return &PatternAnalyzer{}
}

// Name implements Analyzer.
func (a *PatternAnalyzer) Name() string { return PatternName }

// Analyze implements Analyzer.
func (a *PatternAnalyzer) Analyze(text string) Score {
	tokens := tokenize(text)

	var polaritySum, subjectivitySum float64
	matched := 0
	negated := false

	for _, tok := range tokens {
		if _, neg := negations[tok]; neg {
			negated = true
			continue
		}
		ws, ok := patternLexicon[tok]
		if !ok {
			continue
		}
		p := ws.polarity
		if negated {
			p *= -0.5
			negated = false
		}
		polaritySum += p
		subjectivitySum += ws.subjectivity
		matched++
	}

	if matched == 0 {
		return Score{}
	}

	polarity := clamp(polaritySum/float64(matched), -1, 1)
	return Score{
		Polarity:     polarity,
		Subjectivity: clamp(subjectivitySum/float64(matched), 0, 1),
		Confidence:   confidenceFromPolarity(polarity),
	}
}
