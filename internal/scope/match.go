package scope

// Grants reports whether this held scope satisfies the required scope.
// Each of the 4 positions matches when the held component is the
// wildcard or equals the required component; all 4 must match. A
// wildcard at an outer position narrows only that position.
func (s Scope) Grants(required Scope) bool {
	return s.ResourceGroup.Matches(required.ResourceGroup) &&
		s.ProbeGroup.Matches(required.ProbeGroup) &&
		s.Resource.Matches(required.Resource) &&
		s.Action.Matches(required.Action)
}

// HasPermission reports whether any scope in the held set grants the
// required scope. Permissions compose additively: holding one scope
// never revokes permission granted by another.
func HasPermission(held []Scope, required Scope) bool {
	for _, h := range held {
		if h.Grants(required) {
			return true
		}
	}
	return false
}

// SatisfiesAll reports whether the held set grants every required scope.
func SatisfiesAll(held, required []Scope) bool {
	for _, r := range required {
		if !HasPermission(held, r) {
			return false
		}
	}
	return true
}
