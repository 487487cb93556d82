package sampling

import "testing"

func TestParseAssessmentTiers(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		score   int
		outcome Outcome
	}{
		{"plain record", `{"score": 40, "reasoning": "steady lane"}`, 40, OutcomeStructured},
		{"record inside prose", `Sure. {"score": 93, "reasoning": "port strike"} Hope that helps.`, 93, OutcomeStructured},
		{"fractional score rounds", `{"score": 66.6, "reasoning": "rough seas"}`, 67, OutcomeStructured},
		{"record above range clamps", `{"score": 9000, "reasoning": "meteor"}`, 100, OutcomeStructured},
		{"record below range clamps", `{"score": -12, "reasoning": "calm"}`, 0, OutcomeStructured},
		{"broken record falls to integer", `{"score": oops} but call it 35`, 35, OutcomeInteger},
		{"record without score falls through", `{"reasoning": "no number"} maybe 20`, 20, OutcomeInteger},
		{"bare integer in prose", "around 15 percent chance of delay", 15, OutcomeInteger},
		{"negative integer clamps", "I rate it -40", 0, OutcomeInteger},
		{"huge integer clamps", "call it 400", 100, OutcomeInteger},
		{"no digits at all", "entirely unknowable, sorry", 50, OutcomeUnparsed},
		{"empty reply", "", 50, OutcomeUnparsed},
		{"braces with no digits", "{not json}", 50, OutcomeUnparsed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := parseAssessment(tc.raw)
			if a.Score != tc.score {
				t.Fatalf("score: want %d got %d", tc.score, a.Score)
			}
			if a.Outcome != tc.outcome {
				t.Fatalf("outcome: want %s got %s", tc.outcome, a.Outcome)
			}
			if a.Score < 0 || a.Score > 100 {
				t.Fatalf("score %d out of range", a.Score)
			}
		})
	}
}

func TestParseAssessmentReasoningFallsBackToRawText(t *testing.T) {
	a := parseAssessment(`{"score": 10}`)
	if a.Outcome != OutcomeStructured {
		t.Fatalf("expected structured outcome, got %s", a.Outcome)
	}
	if a.Reasoning == "" {
		t.Fatal("expected raw text to stand in for missing reasoning")
	}
}

func TestChooseByLetter(t *testing.T) {
	cases := []struct {
		raw   string
		count int
		idx   int
		ok    bool
	}{
		{"A", 3, 0, true},
		{"I pick B because X", 2, 1, true},
		{"C. the coastal route", 3, 2, true},
		{"D is best", 3, 0, false},
		{"lowercase a doesn't count", 3, 0, false},
		{"ABC has no standalone letters", 3, 0, false},
		{"", 3, 0, false},
	}

	for _, tc := range cases {
		idx, ok := chooseByLetter(tc.raw, tc.count)
		if idx != tc.idx || ok != tc.ok {
			t.Fatalf("chooseByLetter(%q, %d) = (%d, %v), want (%d, %v)", tc.raw, tc.count, idx, ok, tc.idx, tc.ok)
		}
	}
}
