package activity

import "fmt"

// Policy decides what happens when an already-stored event is seen again.
type Policy string

const (
	// PolicyPreserve keeps the first stored copy.
	PolicyPreserve Policy = "preserve"
	// PolicyRefresh overwrites the stored copy with the latest sighting.
	PolicyRefresh Policy = "refresh"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyPreserve, PolicyRefresh:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown ingestion policy %q", s)
}

// Policies holds the re-ingestion policy of each event type.
type Policies struct {
	Commit     Policy
	Deployment Policy
}

// DefaultPolicies keeps commits as first seen and refreshes deployments,
// whose state moves on after the first sighting.
func DefaultPolicies() Policies {
	return Policies{Commit: PolicyPreserve, Deployment: PolicyRefresh}
}

// For returns the policy for typ.
func (p Policies) For(typ Type) Policy {
	if typ == TypeDeployment {
		return p.Deployment
	}
	return p.Commit
}
