package platform

import "fmt"

// Policy owns the serving decisions the platform delegates to operators:
// whether a caller is turned away and how pending requests are ordered.
type Policy interface {
	// Blacklist reports whether the request must be refused, with a
	// human-readable reason when it is.
	Blacklist(req *ChallengeRequest) (bool, string)
	// Priority orders pending requests, higher first.
	Priority(req *ChallengeRequest) float64
}

// StakePolicy refuses unidentified or under-staked callers and prioritizes
// the rest proportionally to their stake.
type StakePolicy struct {
	registry Registry
	minStake float64
}

var _ Policy = (*StakePolicy)(nil)

func NewStakePolicy(registry Registry, minStake float64) *StakePolicy {
	return &StakePolicy{registry: registry, minStake: minStake}
}

func (p *StakePolicy) Blacklist(req *ChallengeRequest) (bool, string) {
	if req.Dendrite == nil || req.Dendrite.Hotkey == "" {
		return true, "request carries no caller identity"
	}
	registration, ok := p.registry.LookupByHotkey(req.Dendrite.Hotkey)
	if !ok {
		return true, fmt.Sprintf("hotkey %s is not registered", req.Dendrite.Hotkey)
	}
	if registration.Stake < p.minStake {
		return true, fmt.Sprintf("stake %.2f is below the minimum %.2f", registration.Stake, p.minStake)
	}
	return false, ""
}

func (p *StakePolicy) Priority(req *ChallengeRequest) float64 {
	if req.Dendrite == nil {
		return 0
	}
	registration, ok := p.registry.LookupByHotkey(req.Dendrite.Hotkey)
	if !ok {
		return 0
	}
	return registration.Stake
}
