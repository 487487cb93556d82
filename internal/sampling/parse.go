package sampling

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Outcome tags which parsing tier produced an Assessment.
type Outcome string

const (
	// OutcomeStructured means the reply carried a well-formed score record.
	OutcomeStructured Outcome = "structured"
	// OutcomeInteger means only a bare integer could be recovered from the
	// reply; the full text stands in as reasoning.
	OutcomeInteger Outcome = "integer-only"
	// OutcomeUnparsed means nothing numeric was found and the score
	// defaulted to the midpoint.
	OutcomeUnparsed Outcome = "unparsed"
)

const midpointScore = 50

var (
	integerToken = regexp.MustCompile(`-?\d+`)
	letterToken  = regexp.MustCompile(`\b[A-Z]\b`)
)

// parseAssessment recovers a score from whatever the client sent back.
// Models do not reliably honor format instructions, so each tier tolerates
// more damage than the last. Never fails: tier three accepts anything.
func parseAssessment(raw string) Assessment {
	trimmed := strings.TrimSpace(raw)

	if a, ok := parseScoreRecord(trimmed); ok {
		return a
	}

	if tok := integerToken.FindString(trimmed); tok != "" {
		if n, err := strconv.Atoi(tok); err == nil {
			return Assessment{Score: clampScore(n), Reasoning: trimmed, Outcome: OutcomeInteger}
		}
	}

	return Assessment{Score: midpointScore, Reasoning: trimmed, Outcome: OutcomeUnparsed}
}

type scoreRecord struct {
	Score     *float64 `json:"score"`
	Reasoning string   `json:"reasoning"`
}

// parseScoreRecord tries the strict tier: a brace-delimited JSON record
// somewhere in the reply with a numeric score.
func parseScoreRecord(s string) (Assessment, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return Assessment{}, false
	}

	var rec scoreRecord
	if err := json.Unmarshal([]byte(s[start:end+1]), &rec); err != nil || rec.Score == nil {
		return Assessment{}, false
	}

	reasoning := strings.TrimSpace(rec.Reasoning)
	if reasoning == "" {
		reasoning = s
	}
	return Assessment{
		Score:     clampScore(int(math.Round(*rec.Score))),
		Reasoning: reasoning,
		Outcome:   OutcomeStructured,
	}, true
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// chooseByLetter finds the first standalone uppercase letter that maps to a
// supplied option. Letters outside the option range are skipped, which keeps
// a leading "I" in prose like "I pick B" from shadowing the real answer.
func chooseByLetter(raw string, count int) (int, bool) {
	for _, tok := range letterToken.FindAllString(raw, -1) {
		if idx := int(tok[0] - 'A'); idx < count {
			return idx, true
		}
	}
	return 0, false
}
