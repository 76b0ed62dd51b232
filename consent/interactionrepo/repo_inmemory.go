package interactionrepo

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jrsteele09/go-iam-server/consent"
	"github.com/jrsteele09/go-iam-server/internal/errors"
)

var _ consent.Provider = (*InMemoryRepo)(nil)

// InMemoryRepo holds interactions and grants for a single process. The
// returned values are copies so callers cannot mutate stored state.
type InMemoryRepo struct {
	mu           sync.RWMutex
	interactions map[string]*consent.Interaction
	grants       map[string]*consent.Grant
	finished     map[string]consent.Result
	returnURL    func(uid string) string
}

func NewInMemoryRepo(returnURL func(uid string) string) *InMemoryRepo {
	if returnURL == nil {
		returnURL = func(uid string) string { return "/oidc/auth/" + uid }
	}
	return &InMemoryRepo{
		interactions: make(map[string]*consent.Interaction),
		grants:       make(map[string]*consent.Grant),
		finished:     make(map[string]consent.Result),
		returnURL:    returnURL,
	}
}

// Start registers an interaction. Used by the provider integration and tests.
func (r *InMemoryRepo) Start(interaction *consent.Interaction) error {
	if interaction == nil || interaction.UID == "" {
		return errors.Wrapf(errors.ErrInvalidInput, "[InMemoryRepo.Start] interaction uid is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interactions[interaction.UID] = copyInteraction(interaction)
	return nil
}

func (r *InMemoryRepo) InteractionDetails(_ context.Context, uid string) (*consent.Interaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	interaction, ok := r.interactions[uid]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "[InMemoryRepo.InteractionDetails] interaction %s", uid)
	}
	return copyInteraction(interaction), nil
}

func (r *InMemoryRepo) FindGrant(_ context.Context, grantID string) (*consent.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	grant, ok := r.grants[grantID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "[InMemoryRepo.FindGrant] grant %s", grantID)
	}
	return copyGrant(grant), nil
}

func (r *InMemoryRepo) SaveGrant(_ context.Context, grant *consent.Grant) (string, error) {
	if grant == nil || grant.ID == "" {
		return "", errors.Wrapf(errors.ErrInvalidInput, "[InMemoryRepo.SaveGrant] grant id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[grant.ID] = copyGrant(grant)
	return grant.ID, nil
}

// FinishInteraction records the result and consumes the interaction.
func (r *InMemoryRepo) FinishInteraction(_ context.Context, uid string, result consent.Result) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.interactions[uid]; !ok {
		return "", fmt.Errorf("[InMemoryRepo.FinishInteraction] %w: interaction %s", errors.ErrNotFound, uid)
	}
	delete(r.interactions, uid)
	r.finished[uid] = result
	return r.returnURL(uid), nil
}

// Finished returns the result an interaction was completed with.
func (r *InMemoryRepo) Finished(uid string) (consent.Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.finished[uid]
	return res, ok
}

func copyInteraction(in *consent.Interaction) *consent.Interaction {
	out := *in
	out.Prompt.Details.MissingOIDCScope = slices.Clone(in.Prompt.Details.MissingOIDCScope)
	out.Prompt.Details.MissingResourceScopes = copyScopes(in.Prompt.Details.MissingResourceScopes)
	return &out
}

func copyGrant(in *consent.Grant) *consent.Grant {
	out := *in
	out.OIDCScopes = slices.Clone(in.OIDCScopes)
	out.ResourceScopes = copyScopes(in.ResourceScopes)
	return &out
}

func copyScopes(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := maps.Clone(in)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}
	return out
}
