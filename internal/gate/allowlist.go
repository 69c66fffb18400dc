package gate

import "strings"

// Allowlist is the access-control gate on sender identity. Pure lookup,
// loaded once from configuration.
type Allowlist struct {
	members map[string]struct{}
}

func NewAllowlist(senders []string) *Allowlist {
	members := make(map[string]struct{}, len(senders))
	for _, s := range senders {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			members[trimmed] = struct{}{}
		}
	}
	return &Allowlist{members: members}
}

func (a *Allowlist) IsAllowed(sender string) bool {
	_, ok := a.members[strings.TrimSpace(sender)]
	return ok
}
