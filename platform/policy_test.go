package platform

import (
	"testing"

	"detection-api/apiconfig"

	"github.com/stretchr/testify/assert"
)

func testRegistry() *StaticRegistry {
	return NewStaticRegistry([]apiconfig.RegistrationConfig{
		{Uid: 1, Hotkey: "hk-validator", Stake: 12000, Trust: 0.9, IsValidator: true},
		{Uid: 2, Hotkey: "hk-light", Stake: 5},
	})
}

func TestStakePolicyBlacklist(t *testing.T) {
	policy := NewStakePolicy(testRegistry(), 100)

	refused, reason := policy.Blacklist(&ChallengeRequest{
		Dendrite: &Dendrite{Hotkey: "hk-validator", IP: "10.0.0.1"},
	})
	assert.False(t, refused)
	assert.Empty(t, reason)

	refused, reason = policy.Blacklist(&ChallengeRequest{
		Dendrite: &Dendrite{Hotkey: "hk-light", IP: "10.0.0.2"},
	})
	assert.True(t, refused)
	assert.Contains(t, reason, "below the minimum")

	refused, reason = policy.Blacklist(&ChallengeRequest{
		Dendrite: &Dendrite{Hotkey: "hk-stranger"},
	})
	assert.True(t, refused)
	assert.Contains(t, reason, "not registered")

	refused, reason = policy.Blacklist(&ChallengeRequest{})
	assert.True(t, refused)
	assert.Contains(t, reason, "no caller identity")
}

func TestStakePolicyPriority(t *testing.T) {
	policy := NewStakePolicy(testRegistry(), 100)

	assert.Equal(t, 12000.0, policy.Priority(&ChallengeRequest{
		Dendrite: &Dendrite{Hotkey: "hk-validator"},
	}))
	assert.Equal(t, 0.0, policy.Priority(&ChallengeRequest{
		Dendrite: &Dendrite{Hotkey: "hk-stranger"},
	}))
	assert.Equal(t, 0.0, policy.Priority(&ChallengeRequest{}))
}

func TestChallengeRequestDefaultsLabelUnset(t *testing.T) {
	req := NewChallengeRequest()
	assert.Equal(t, -1, req.TestnetLabel)
}

func TestChallengeResponseDefaultsToNoAnswer(t *testing.T) {
	resp := NewChallengeResponse()
	assert.Equal(t, -1.0, resp.Prediction)
}
