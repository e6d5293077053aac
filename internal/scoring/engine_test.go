package scoring

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"
)

var mid = uuid.MustParse("6f9619ff-8b86-4d01-b42d-00cf4fc964ff")

func cardQuiz(tries ...uint16) ModuleSummary {
	rounds := make([]CardRound, len(tries))
	for i, t := range tries {
		rounds[i] = CardRound{CardIndex: uint32(i), FailedTries: t}
	}
	return ModuleSummary{Kind: KindCardQuiz, CardQuiz: &CardQuiz{StableModuleID: mid, Rounds: rounds}}
}

func TestCreditLadder(t *testing.T) {
	tests := []struct {
		failed uint16
		want   float64
	}{
		{0, 1.0},
		{1, 0.5},
		{2, 0.0},
		{3, 0.0},
		{math.MaxUint16, 0.0},
	}
	for _, tt := range tests {
		if got := tryPoints(tt.failed); got != tt.want {
			t.Errorf("tryPoints(%d) = %v, want %v", tt.failed, got, tt.want)
		}
	}
}

func TestScoreModules(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name string
		mod  ModuleSummary
		want Points
	}{
		{
			name: "card quiz perfect",
			mod:  cardQuiz(0, 0),
			want: Points{Available: 2, Earned: 2},
		},
		{
			name: "card quiz partial",
			mod:  cardQuiz(0, 1, 3),
			want: Points{Available: 3, Earned: 1.5},
		},
		{
			name: "card quiz empty rounds",
			mod:  cardQuiz(),
			want: Points{},
		},
		{
			name: "matching sums all rounds and slots",
			mod: ModuleSummary{Kind: KindMatching, Matching: &Matching{
				StableModuleID: mid,
				Rounds: []map[string]TryRecord{
					{"0": {FailedTries: 0}, "1": {FailedTries: 1}},
					{"0": {FailedTries: 2}},
				},
			}},
			want: Points{Available: 3, Earned: 1.5},
		},
		{
			name: "drag drop sums item map",
			mod: ModuleSummary{Kind: KindDragDrop, DragDrop: &DragDrop{
				StableModuleID: mid,
				Items:          map[string]TryRecord{"0": {FailedTries: 0}, "3": {FailedTries: 5}},
			}},
			want: Points{Available: 2, Earned: 1},
		},
		{
			name: "find answer sums items",
			mod: ModuleSummary{Kind: KindFindAnswer, FindAnswer: &FindAnswer{
				StableModuleID: mid,
				Items:          []TryRecord{{FailedTries: 1}, {FailedTries: 1}},
			}},
			want: Points{Available: 2, Earned: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ScoreModule(tt.mod)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.Earned > got.Available || got.Earned < 0 {
				t.Errorf("earned out of range: %+v", got)
			}
		})
	}
}

func TestScoreIsAssociativeAcrossModules(t *testing.T) {
	e := NewEngine()
	a := PlaySummary{Modules: []ModuleSummary{cardQuiz(0, 1)}}
	b := PlaySummary{Modules: []ModuleSummary{cardQuiz(2), cardQuiz(0)}}
	union := PlaySummary{Modules: append(append([]ModuleSummary{}, a.Modules...), b.Modules...)}

	if got, want := e.Score(union), e.Score(a).Add(e.Score(b)); got != want {
		t.Errorf("score(a∪b) = %+v, want score(a)+score(b) = %+v", got, want)
	}
}

func TestVisitedContributesNothing(t *testing.T) {
	e := NewEngine()
	s := PlaySummary{
		Modules: []ModuleSummary{cardQuiz(0)},
		Visited: []uuid.UUID{uuid.New(), uuid.New()},
	}
	if got := e.Score(s); got != (Points{Available: 1, Earned: 1}) {
		t.Errorf("visited must not affect score, got %+v", got)
	}
}

func TestEmptySummaryScoresZero(t *testing.T) {
	if got := NewEngine().Score(PlaySummary{}); got != (Points{}) {
		t.Errorf("empty summary = %+v, want zero", got)
	}
}

func TestPercent(t *testing.T) {
	if p, ok := (Points{Available: 3, Earned: 1.5}).Percent(); !ok || p != 50 {
		t.Errorf("got (%d,%v), want (50,true)", p, ok)
	}
	if p, ok := (Points{Available: 3, Earned: 2}).Percent(); !ok || p != 66 {
		t.Errorf("floor: got (%d,%v), want (66,true)", p, ok)
	}
	if _, ok := (Points{}).Percent(); ok {
		t.Error("zero available must report no percent")
	}
}

func TestSummaryJSONRoundTrip(t *testing.T) {
	in := PlaySummary{
		Modules: []ModuleSummary{
			cardQuiz(0, 1),
			{Kind: KindDragDrop, DragDrop: &DragDrop{
				StableModuleID: mid,
				Items:          map[string]TryRecord{"2": {FailedTries: 1}},
			}},
		},
		Visited: []uuid.UUID{mid},
	}
	buf, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out PlaySummary
	if err := json.Unmarshal(buf, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if NewEngine().Score(out) != NewEngine().Score(in) {
		t.Error("round-trip changed the score")
	}
	if len(out.Visited) != 1 || out.Visited[0] != mid {
		t.Errorf("visited did not round-trip: %v", out.Visited)
	}
}

func TestUnknownKindFailsDecode(t *testing.T) {
	raw := `{"modules":[{"WordSearch":{"stable_module_id":"6f9619ff-8b86-4d01-b42d-00cf4fc964ff"}}],"visited":[]}`
	var s PlaySummary
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		t.Fatal("unknown module kind must fail decode")
	}
}

func TestNegativeFailedTriesFailsDecode(t *testing.T) {
	raw := `{"modules":[{"CardQuiz":{"stable_module_id":"6f9619ff-8b86-4d01-b42d-00cf4fc964ff","rounds":[{"card_index":0,"failed_tries":-1}]}}],"visited":[]}`
	var s PlaySummary
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		t.Fatal("negative failed_tries must fail decode")
	}
}

func TestDoubleTaggedModuleFailsDecode(t *testing.T) {
	raw := `{"modules":[{"CardQuiz":{"stable_module_id":"6f9619ff-8b86-4d01-b42d-00cf4fc964ff","rounds":[]},"FindAnswer":{"stable_module_id":"6f9619ff-8b86-4d01-b42d-00cf4fc964ff","items":[]}}]}`
	var s PlaySummary
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		t.Fatal("module entry with two kind tags must fail decode")
	}
}
