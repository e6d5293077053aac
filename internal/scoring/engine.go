// Package scoring turns play summaries into (available, earned) point totals.
// Everything here is pure: no I/O, no clocks, so a retried completion always
// reproduces the score it got the first time.
package scoring

import "math"

// Points is the (available, earned) pair reported per module and per session.
type Points struct {
	Available float64 `json:"available"`
	Earned    float64 `json:"earned"`
}

func (p Points) Add(q Points) Points {
	return Points{Available: p.Available + q.Available, Earned: p.Earned + q.Earned}
}

// Percent renders earned/available as a whole percentage, floored. Returns
// false when nothing was available to earn.
func (p Points) Percent() (int, bool) {
	if p.Available <= 0 {
		return 0, false
	}
	return int(math.Floor(p.Earned / p.Available * 100)), true
}

// tryPoints is the credit ladder shared by every interactive module kind.
func tryPoints(failedTries uint16) float64 {
	switch failedTries {
	case 0:
		return 1.0
	case 1:
		return 0.5
	default:
		return 0.0
	}
}

// Strategy scores a single module of its kind.
type Strategy interface {
	Score(m ModuleSummary) Points
}

// Engine routes each module to the strategy for its kind.
type Engine struct {
	strategies map[ModuleKind]Strategy
}

func NewEngine() *Engine {
	return &Engine{
		strategies: map[ModuleKind]Strategy{
			KindMatching:   matchingStrategy{},
			KindCardQuiz:   cardQuizStrategy{},
			KindDragDrop:   dragDropStrategy{},
			KindFindAnswer: findAnswerStrategy{},
		},
	}
}

// ScoreModule scores one module. Kinds without a strategy contribute nothing;
// decode already rejected tags the union does not know.
func (e *Engine) ScoreModule(m ModuleSummary) Points {
	s, ok := e.strategies[m.Kind]
	if !ok {
		return Points{}
	}
	return s.Score(m)
}

// Score sums every module of a summary. Visited modules contribute nothing.
func (e *Engine) Score(summary PlaySummary) Points {
	var total Points
	for _, m := range summary.Modules {
		total = total.Add(e.ScoreModule(m))
	}
	return total
}

type matchingStrategy struct{}

func (matchingStrategy) Score(m ModuleSummary) Points {
	var p Points
	for _, round := range m.Matching.Rounds {
		for _, slot := range round {
			p.Available++
			p.Earned += tryPoints(slot.FailedTries)
		}
	}
	return p
}

type cardQuizStrategy struct{}

func (cardQuizStrategy) Score(m ModuleSummary) Points {
	var p Points
	for _, round := range m.CardQuiz.Rounds {
		p.Available++
		p.Earned += tryPoints(round.FailedTries)
	}
	return p
}

type dragDropStrategy struct{}

func (dragDropStrategy) Score(m ModuleSummary) Points {
	var p Points
	for _, item := range m.DragDrop.Items {
		p.Available++
		p.Earned += tryPoints(item.FailedTries)
	}
	return p
}

type findAnswerStrategy struct{}

func (findAnswerStrategy) Score(m ModuleSummary) Points {
	var p Points
	for _, item := range m.FindAnswer.Items {
		p.Available++
		p.Earned += tryPoints(item.FailedTries)
	}
	return p
}
