package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ModuleKind tags one variant of the play-summary union.
type ModuleKind string

const (
	KindMatching   ModuleKind = "Matching"
	KindCardQuiz   ModuleKind = "CardQuiz"
	KindDragDrop   ModuleKind = "DragDrop"
	KindFindAnswer ModuleKind = "FindAnswer"
)

// TryRecord is the per-interaction record shared by every module kind.
type TryRecord struct {
	FailedTries uint16 `json:"failed_tries"`
}

// CardRound is one answered card in a card-quiz play.
type CardRound struct {
	CardIndex   uint32 `json:"card_index"`
	FailedTries uint16 `json:"failed_tries"`
}

type Matching struct {
	StableModuleID uuid.UUID              `json:"stable_module_id"`
	Rounds         []map[string]TryRecord `json:"rounds"` // slot index -> record
}

type CardQuiz struct {
	StableModuleID uuid.UUID   `json:"stable_module_id"`
	Rounds         []CardRound `json:"rounds"`
}

type DragDrop struct {
	StableModuleID uuid.UUID            `json:"stable_module_id"`
	Items          map[string]TryRecord `json:"items"` // item index -> record
}

type FindAnswer struct {
	StableModuleID uuid.UUID   `json:"stable_module_id"`
	Items          []TryRecord `json:"items"`
}

// ModuleSummary is one externally-tagged module entry:
// {"CardQuiz": {...}} on the wire.
type ModuleSummary struct {
	Kind       ModuleKind
	Matching   *Matching
	CardQuiz   *CardQuiz
	DragDrop   *DragDrop
	FindAnswer *FindAnswer
}

// StableID returns the stable module id of whichever variant is set.
func (m ModuleSummary) StableID() uuid.UUID {
	switch m.Kind {
	case KindMatching:
		return m.Matching.StableModuleID
	case KindCardQuiz:
		return m.CardQuiz.StableModuleID
	case KindDragDrop:
		return m.DragDrop.StableModuleID
	case KindFindAnswer:
		return m.FindAnswer.StableModuleID
	}
	return uuid.Nil
}

func (m ModuleSummary) MarshalJSON() ([]byte, error) {
	var payload any
	switch m.Kind {
	case KindMatching:
		payload = m.Matching
	case KindCardQuiz:
		payload = m.CardQuiz
	case KindDragDrop:
		payload = m.DragDrop
	case KindFindAnswer:
		payload = m.FindAnswer
	default:
		return nil, fmt.Errorf("scoring: cannot marshal module kind %q", m.Kind)
	}
	return json.Marshal(map[ModuleKind]any{m.Kind: payload})
}

func (m *ModuleSummary) UnmarshalJSON(data []byte) error {
	var tagged map[ModuleKind]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("scoring: module entry must carry exactly one kind tag, got %d", len(tagged))
	}
	for kind, raw := range tagged {
		switch kind {
		case KindMatching:
			m.Matching = &Matching{}
			m.Kind = kind
			return json.Unmarshal(raw, m.Matching)
		case KindCardQuiz:
			m.CardQuiz = &CardQuiz{}
			m.Kind = kind
			return json.Unmarshal(raw, m.CardQuiz)
		case KindDragDrop:
			m.DragDrop = &DragDrop{}
			m.Kind = kind
			return json.Unmarshal(raw, m.DragDrop)
		case KindFindAnswer:
			m.FindAnswer = &FindAnswer{}
			m.Kind = kind
			return json.Unmarshal(raw, m.FindAnswer)
		default:
			return fmt.Errorf("scoring: unknown module kind %q", kind)
		}
	}
	return nil
}

// PlaySummary is the full record of one play, delivered in one shot at
// completion. Visited carries modules the player reached without interacting
// (cover slides and the like); it never contributes to the score and must
// survive a store round-trip unchanged.
type PlaySummary struct {
	Modules []ModuleSummary `json:"modules"`
	Visited []uuid.UUID     `json:"visited"`
}
