package core

import "ontosim/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in submission
// criteria.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewObjectParameterRule())
	return engine
}
