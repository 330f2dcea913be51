package types

// Substitution maps type parameters (by identity, never by name) to the types
// standing in for them. Substitutions are transient: the checker and the
// erasure pass build them per call site or per declaration and discard them
type Substitution map[ParamID]SimpleType

// Apply substitutes every mapped parameter reference inside t.
// Unmapped parameter references are left as free variables. The recursion is
// purely structural and allocates only on the paths it changes, so applying
// an empty substitution returns t itself.
//
// Because parameters are keyed by synthetic identity, a method-scoped
// parameter shadowing a class-scoped parameter of the same surface name can
// never be captured by the wrong mapping
func (s Substitution) Apply(t SimpleType) SimpleType {
	if len(s) == 0 || t == nil {
		return t
	}
	switch t := t.(type) {
	case *paramRef:
		if mapped, ok := s[t.param.id]; ok {
			return mapped
		}
		return t
	case *appliedType:
		var newArgs []SimpleType
		for i, arg := range t.args {
			mapped := s.Apply(arg)
			if newArgs == nil && mapped != arg {
				newArgs = make([]SimpleType, i, len(t.args))
				copy(newArgs, t.args[:i])
			}
			if newArgs != nil {
				newArgs = append(newArgs, mapped)
			}
		}
		if newArgs == nil {
			return t
		}
		return &appliedType{base: t.base, args: newArgs, withProvenance: t.withProvenance}
	case *wildcardType:
		if t.bound == nil {
			return t
		}
		mapped := s.Apply(t.bound)
		if mapped == t.bound {
			return t
		}
		return &wildcardType{kind: t.kind, bound: mapped, withProvenance: t.withProvenance}
	default:
		return t
	}
}

// compose returns a substitution equivalent to applying s first, then other
func (s Substitution) compose(other Substitution) Substitution {
	if len(other) == 0 {
		return s
	}
	combined := make(Substitution, len(s)+len(other))
	for id, t := range s {
		combined[id] = other.Apply(t)
	}
	for id, t := range other {
		if _, ok := combined[id]; !ok {
			combined[id] = t
		}
	}
	return combined
}
