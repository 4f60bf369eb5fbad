package core

import (
	"context"
	"fmt"

	"ontosim/pkg/domain"
)

// SetActionImplementation overrides the ontology's implementation for an
// action type. Plugins use this to supply action effects.
func (s *Store) SetActionImplementation(action string, impl domain.ActionImplementation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if impl == nil {
		delete(s.impls, action)
		return
	}
	s.impls[action] = impl
}

// ValidateAction validates a request against the current state without
// applying it.
func (s *Store) ValidateAction(ctx context.Context, req domain.ActionRequest) (domain.ValidationResult, error) {
	def, err := s.ontology.ActionType(req.Action)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, _, err := s.validateAction(ctx, stateView{state: s.state}, def, req.Parameters)
	return res, err
}

// ApplyAction validates a request and, when valid, runs its implementation
// inside one transaction. An invalid request is reported through the
// returned validation result, not as an error, and changes nothing.
func (s *Store) ApplyAction(ctx context.Context, req domain.ActionRequest, opts domain.ApplyActionOptions) (domain.ActionResponse, error) {
	def, err := s.ontology.ActionType(req.Action)
	if err != nil {
		return domain.ActionResponse{}, err
	}
	var (
		resp    domain.ActionResponse
		params  map[string]any
		applied bool
	)
	err = s.RunInTransaction(ctx, func(tx *Transaction) error {
		validation, cleaned, err := s.validateAction(ctx, stateView{state: tx.ops.state}, def, req.Parameters)
		if err != nil {
			return err
		}
		resp.Validation = validation
		params = cleaned
		if !validation.Valid() || opts.Mode == domain.ModeValidateOnly {
			return nil
		}
		impl, ok := s.implementationLocked(req.Action)
		if !ok {
			return &domain.NotFoundError{Kind: "action implementation", Detail: req.Action}
		}
		actx := domain.ActionContext{Action: def, Ontology: s.ontology}
		legacy, err := impl(ctx, tx, domain.ActionRequest{Action: req.Action, Parameters: params}, actx)
		if err != nil {
			return fmt.Errorf("apply action %s: %w", req.Action, err)
		}
		applied = true
		if legacy != nil {
			resp = *legacy
			return nil
		}
		resp.Edits = domain.BuildActionEdits(tx.Edits(), opts.ReturnEdits)
		return nil
	})
	if err != nil {
		return domain.ActionResponse{Validation: resp.Validation}, err
	}
	if applied {
		s.opts.logger.Debug("action applied", "action", req.Action)
	}
	return resp, nil
}

// BatchApplyAction validates every request before touching state, then
// applies them in order against one shared transaction so the edit report
// covers the whole batch.
func (s *Store) BatchApplyAction(ctx context.Context, reqs []domain.ActionRequest, opts domain.ApplyActionOptions) (domain.BatchActionResponse, error) {
	if opts.ReturnEdits == domain.ReturnEditsAllWithDeletions {
		return domain.BatchActionResponse{}, &domain.InvalidArgumentError{Detail: "ALL_V2_WITH_DELETIONS is only supported for single actions"}
	}
	defs := make([]domain.ActionTypeDefinition, len(reqs))
	for i, req := range reqs {
		def, err := s.ontology.ActionType(req.Action)
		if err != nil {
			return domain.BatchActionResponse{}, err
		}
		defs[i] = def
	}
	var resp domain.BatchActionResponse
	err := s.RunInTransaction(ctx, func(tx *Transaction) error {
		view := stateView{state: tx.ops.state}
		cleaned := make([]map[string]any, len(reqs))
		valid := true
		for i, req := range reqs {
			validation, params, err := s.validateAction(ctx, view, defs[i], req.Parameters)
			if err != nil {
				return err
			}
			resp.Validations = append(resp.Validations, validation)
			cleaned[i] = params
			valid = valid && validation.Valid()
		}
		if !valid || opts.Mode == domain.ModeValidateOnly {
			return nil
		}
		for i, req := range reqs {
			impl, ok := s.implementationLocked(req.Action)
			if !ok {
				return &domain.NotFoundError{Kind: "action implementation", Detail: req.Action}
			}
			actx := domain.ActionContext{Action: defs[i], Ontology: s.ontology}
			if _, err := impl(ctx, tx, domain.ActionRequest{Action: req.Action, Parameters: cleaned[i]}, actx); err != nil {
				return fmt.Errorf("apply action %s (batch item %d): %w", req.Action, i, err)
			}
		}
		resp.Edits = domain.BuildActionEdits(tx.Edits(), opts.ReturnEdits)
		return nil
	})
	if err != nil {
		return domain.BatchActionResponse{Validations: resp.Validations}, err
	}
	return resp, nil
}

// implementationLocked resolves an implementation while the store lock is
// already held.
func (s *Store) implementationLocked(action string) (domain.ActionImplementation, bool) {
	if impl, ok := s.impls[action]; ok {
		return impl, true
	}
	return s.ontology.ActionImplementation(action)
}
