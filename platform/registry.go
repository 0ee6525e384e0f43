package platform

import "detection-api/apiconfig"

// Registration is one registered identity on the base platform.
type Registration struct {
	UID         int64
	Hotkey      string
	Stake       float64
	Trust       float64
	Incentive   float64
	Emission    float64
	IsValidator bool
}

// Registry resolves caller hotkeys to their platform registration.
type Registry interface {
	LookupByHotkey(hotkey string) (Registration, bool)
}

// StaticRegistry serves registrations from a fixed snapshot, typically the
// registry section of the config file. It stands in for the live platform
// registry on dev and test networks.
type StaticRegistry struct {
	byHotkey map[string]Registration
}

var _ Registry = (*StaticRegistry)(nil)

func NewStaticRegistry(entries []apiconfig.RegistrationConfig) *StaticRegistry {
	byHotkey := make(map[string]Registration, len(entries))
	for _, entry := range entries {
		byHotkey[entry.Hotkey] = Registration{
			UID:         entry.Uid,
			Hotkey:      entry.Hotkey,
			Stake:       entry.Stake,
			Trust:       entry.Trust,
			Incentive:   entry.Incentive,
			Emission:    entry.Emission,
			IsValidator: entry.IsValidator,
		}
	}
	return &StaticRegistry{byHotkey: byHotkey}
}

func (r *StaticRegistry) LookupByHotkey(hotkey string) (Registration, bool) {
	registration, ok := r.byHotkey[hotkey]
	return registration, ok
}
