package export

import (
	"encoding/csv"
	"strings"
	"testing"

	"flashgen/internal/models"
)

func sampleSet() models.FlashcardSet {
	return models.FlashcardSet{
		{Question: "What is ATP?", Answer: "Adenosine triphosphate, an energy carrier.", Difficulty: models.DifficultyEasy},
		{Question: `Who said "I think, therefore I am"?`, Answer: "Descartes", Difficulty: models.DifficultyMedium},
		{Question: "List the states of matter", Answer: "solid\nliquid\ngas", Difficulty: models.DifficultyHard},
	}
}

func TestToCSV(t *testing.T) {
	out, err := ToCSV(sampleSet())
	if err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d records", len(records))
	}
	if strings.Join(records[0], ",") != "question,answer,difficulty" {
		t.Errorf("header = %v", records[0])
	}
	if records[2][0] != `Who said "I think, therefore I am"?` {
		t.Errorf("embedded quotes mangled: %q", records[2][0])
	}
	if records[3][1] != "solid\nliquid\ngas" {
		t.Errorf("embedded newlines mangled: %q", records[3][1])
	}
	if records[3][2] != "Hard" {
		t.Errorf("difficulty column = %q", records[3][2])
	}
}

func TestJSONRoundTrip(t *testing.T) {
	set := sampleSet()
	out, err := ToJSON(set)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	back, err := FromJSON(out)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if len(back) != len(set) {
		t.Fatalf("round trip changed length: %d != %d", len(back), len(set))
	}
	for i := range set {
		if back[i].Question != set[i].Question ||
			back[i].Answer != set[i].Answer ||
			back[i].Difficulty != set[i].Difficulty {
			t.Errorf("card %d changed in round trip: %+v != %+v", i, back[i], set[i])
		}
	}
}

func TestToJSONEmptySet(t *testing.T) {
	out, err := ToJSON(nil)
	if err != nil {
		t.Fatalf("ToJSON(nil): %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("empty set = %q, want []", out)
	}
}

func TestToAnki(t *testing.T) {
	out := ToAnki(sampleSet())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if strings.Count(line, "\t") != 1 {
			t.Errorf("line %d has %d tabs: %q", i, strings.Count(line, "\t"), line)
		}
	}
	if lines[2] != "List the states of matter\tsolid liquid gas" {
		t.Errorf("newline flattening failed: %q", lines[2])
	}
}
