package parser

import (
	"strings"
	"testing"
)

func TestParseQAPrefixed(t *testing.T) {
	raw := "Q: What is ATP?\nA: Adenosine triphosphate, an energy carrier.\nQ: \nA: "

	res := Parse(raw)
	if res.Pattern != PatternQAPrefixed {
		t.Fatalf("pattern = %s, want %s", res.Pattern, PatternQAPrefixed)
	}
	if len(res.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(res.Pairs))
	}
	if res.Pairs[0].Question != "What is ATP?" {
		t.Errorf("question = %q", res.Pairs[0].Question)
	}
	if res.Pairs[0].Answer != "Adenosine triphosphate, an energy carrier." {
		t.Errorf("answer = %q", res.Pairs[0].Answer)
	}
	if res.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", res.Dropped)
	}
}

func TestParseQAOnSingleLine(t *testing.T) {
	raw := "Q: What is osmosis? A: Diffusion of water across a membrane. Q: What drives it? A: The concentration gradient."

	res := Parse(raw)
	if res.Pattern != PatternQAPrefixed || len(res.Pairs) != 2 {
		t.Fatalf("got pattern %s with %d pairs", res.Pattern, len(res.Pairs))
	}
	if res.Pairs[1].Question != "What drives it?" {
		t.Errorf("second question = %q", res.Pairs[1].Question)
	}
}

func TestParseQuestionAnswerWords(t *testing.T) {
	raw := "Question: Who proposed natural selection?\nAnswer: Charles Darwin.\nQuestion: When?\nAnswer: 1859."

	res := Parse(raw)
	if res.Pattern != PatternQAPrefixed || len(res.Pairs) != 2 {
		t.Fatalf("got pattern %s with %d pairs", res.Pattern, len(res.Pairs))
	}
	if res.Pairs[0].Answer != "Charles Darwin." {
		t.Errorf("answer = %q", res.Pairs[0].Answer)
	}
}

func TestParseNumberedList(t *testing.T) {
	raw := "1. What is the capital of France? Paris, on the Seine.\n2. What is the capital of Spain? Madrid."

	res := Parse(raw)
	if res.Pattern != PatternNumbered {
		t.Fatalf("pattern = %s, want %s", res.Pattern, PatternNumbered)
	}
	if len(res.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(res.Pairs))
	}
	if res.Pairs[0].Question != "What is the capital of France?" {
		t.Errorf("question = %q", res.Pairs[0].Question)
	}
	if res.Pairs[0].Answer != "Paris, on the Seine." {
		t.Errorf("answer = %q", res.Pairs[0].Answer)
	}
}

func TestParseNumberedMultiline(t *testing.T) {
	raw := "1) Define inertia\nThe tendency of a body to resist changes in motion.\n2) Define momentum\nMass times velocity."

	res := Parse(raw)
	if res.Pattern != PatternNumbered || len(res.Pairs) != 2 {
		t.Fatalf("got pattern %s with %d pairs", res.Pattern, len(res.Pairs))
	}
	if res.Pairs[1].Answer != "Mass times velocity." {
		t.Errorf("answer = %q", res.Pairs[1].Answer)
	}
}

func TestParsePairedLinesFallback(t *testing.T) {
	raw := "What is a solvent?\nThe substance that does the dissolving.\nWhat is a solute?\nThe substance being dissolved."

	res := Parse(raw)
	if res.Pattern != PatternPairedLines {
		t.Fatalf("pattern = %s, want %s", res.Pattern, PatternPairedLines)
	}
	if len(res.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(res.Pairs))
	}
}

func TestParseRejectsPlainProse(t *testing.T) {
	raw := "The water cycle moves water between the oceans and the sky.\nEvaporation lifts it, condensation forms clouds, and rain returns it."

	res := Parse(raw)
	if res.Pattern != PatternNone || len(res.Pairs) != 0 {
		t.Fatalf("prose should yield nothing, got pattern %s with %d pairs", res.Pattern, len(res.Pairs))
	}
}

func TestParseStripsCodeFences(t *testing.T) {
	raw := "```\nQ: What is pH?\nA: A measure of acidity.\n```"

	res := Parse(raw)
	if len(res.Pairs) != 1 || res.Pairs[0].Question != "What is pH?" {
		t.Fatalf("fenced output not parsed: %+v", res)
	}
}

func TestParseDefensiveness(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t  ",
		"Q:",
		"A: orphaned answer",
		"1.",
		"?????",
		strings.Repeat("x", 100000),
		string([]byte{0xff, 0xfe, 0x00, 0x41}),
		"Q: only a question, no answer marker",
	}
	for _, in := range inputs {
		res := Parse(in) // must not panic
		for _, p := range res.Pairs {
			if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
				t.Errorf("Parse(%q) emitted an empty-sided pair", in)
			}
		}
	}
}
