package platform

// Dendrite identifies the caller that dispatched a challenge.
type Dendrite struct {
	Hotkey string `json:"hotkey"`
	IP     string `json:"ip"`
}

// ChallengeRequest is one classification challenge as presented by the
// platform transport. Image is base64-encoded. TestnetLabel carries the
// ground-truth label on test networks and stays -1 on production traffic.
type ChallengeRequest struct {
	Image        string    `json:"image"`
	TestnetLabel int       `json:"testnet_label"`
	Dendrite     *Dendrite `json:"dendrite,omitempty"`
}

// NewChallengeRequest returns a request with TestnetLabel at its unset
// value so decoding a body without the field keeps the -1 convention.
func NewChallengeRequest() ChallengeRequest {
	return ChallengeRequest{TestnetLabel: -1}
}

// ChallengeResponse carries a miner's answer. Prediction stays at -1 when
// the miner produced no usable answer; validators treat that as no response.
type ChallengeResponse struct {
	Prediction float64 `json:"prediction"`
	ModelUrl   string  `json:"model_url"`
}

// NewChallengeResponse returns a response with Prediction preset to the
// no-answer value.
func NewChallengeResponse() ChallengeResponse {
	return ChallengeResponse{Prediction: -1}
}

// ChallengeFinishedEvent is published on the platform event feed once every
// miner's answer to a challenge has been collected.
type ChallengeFinishedEvent struct {
	ChallengeID string    `json:"challenge_id"`
	Modality    string    `json:"modality"`
	Label       float64   `json:"label"`
	UIDs        []int64   `json:"uids"`
	Hotkeys     []string  `json:"hotkeys"`
	Predictions []float64 `json:"predictions"`
}
