// Package launch implements the launcher of a training run: argument
// validation and an explicit supervisor for the actor processes. The
// launcher validates before spawning anything, so a usage error never
// leaves partial processes behind.
package launch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sfneuman.com/stampede/agent"
	"sfneuman.com/stampede/environment/envconfig"
)

// actorCountRE accepts plain non-negative decimal integers with no
// leading zero, or 0x-prefixed hexadecimal
var actorCountRE = regexp.MustCompile(`^(0|[1-9][0-9]*|0[xX][0-9a-fA-F]+)$`)

// ValidateGame checks that name refers to a playable game
func ValidateGame(name string) error {
	if envconfig.Valid(name) {
		return nil
	}
	names := make([]string, 0, len(envconfig.Names()))
	for _, n := range envconfig.Names() {
		names = append(names, string(n))
	}
	return fmt.Errorf("Supported games: %v", strings.Join(names, "|"))
}

// ValidateAgent checks that name refers to a registered algorithm
func ValidateAgent(name string) error {
	if agent.Valid(name) {
		return nil
	}
	names := make([]string, 0, len(agent.Types()))
	for _, t := range agent.Types() {
		names = append(names, string(t))
	}
	return fmt.Errorf("Supported agents: %v", strings.Join(names, "|"))
}

// ParseActorCount parses a num_actors argument: a non-negative decimal
// integer with no leading zero, or 0x-prefixed hexadecimal
func ParseActorCount(s string) (int, error) {
	if !actorCountRE.MatchString(s) {
		return 0, fmt.Errorf("Number of actors should be a non-negative "+
			"integer without leading zeros, got %q", s)
	}

	// Base 0 follows the 0x prefix when present
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("Number of actors should be a non-negative "+
			"integer without leading zeros, got %q", s)
	}
	return int(n), nil
}
