package risk

import (
	"math"

	"dualAgentBot/internal/domain"
)

// Profile holds the position-sizing parameters for one agent.
type Profile struct {
	MinPositionSize float64 // USD ceiling at MCS 0
	MaxPositionSize float64 // USD ceiling at MCS 1 (absolute cap)
	MaxRiskPerTrade float64 // fraction of the agent's balance per trade
}

// Engine maps (agent identity, MCS) to a position-sizing policy. Pure and
// deterministic: no I/O, no internal state beyond the two fixed profiles.
type Engine struct {
	agentA Profile
	agentB Profile
}

// Default profiles. Agent A may commit a large fraction of its small cycle
// balance; agent B's fraction is 100x tighter with a higher absolute
// minimum, reflecting its conservative donation-funding mandate.
var (
	DefaultAgentAProfile = Profile{
		MinPositionSize: 10.0,
		MaxPositionSize: 25.0,
		MaxRiskPerTrade: 0.5,
	}
	DefaultAgentBProfile = Profile{
		MinPositionSize: 25.0,
		MaxPositionSize: 250.0,
		MaxRiskPerTrade: 0.005,
	}
)

// NewEngine creates a risk engine with the default agent profiles.
func NewEngine() *Engine {
	return &Engine{agentA: DefaultAgentAProfile, agentB: DefaultAgentBProfile}
}

// NewEngineWithProfiles creates a risk engine with custom profiles.
func NewEngineWithProfiles(agentA, agentB Profile) *Engine {
	return &Engine{agentA: agentA, agentB: agentB}
}

// Assess computes the sizing policy for an agent at the given confidence
// score. The allowed size scales linearly with MCS within the profile and is
// clamped to the profile's ceiling regardless of MCS.
func (e *Engine) Assess(agent domain.AgentID, mcs float64) domain.RiskAssessment {
	profile := e.agentA
	if agent == domain.AgentB {
		profile = e.agentB
	}

	mcs = clamp01(mcs)
	size := profile.MinPositionSize + (profile.MaxPositionSize-profile.MinPositionSize)*mcs
	size = math.Min(size, profile.MaxPositionSize)

	return domain.RiskAssessment{
		MaxPositionSize: size,
		MaxRiskPerTrade: profile.MaxRiskPerTrade,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
