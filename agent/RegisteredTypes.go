package agent

// Type represents a specific algorithm an agent Config can create
type Type string

const (
	R2D2   Type = "r2d2"
	VTrace Type = "vtrace"
	SAC    Type = "sac"
)

// Types returns all algorithm names agents can be created for
func Types() []Type {
	return []Type{R2D2, VTrace, SAC}
}

// Valid returns whether name refers to a registered algorithm
func Valid(name string) bool {
	for _, t := range Types() {
		if name == string(t) {
			return true
		}
	}
	return false
}
