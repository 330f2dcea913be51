package backend

import (
	"slices"
	"strings"

	"github.com/opal-lang/opal/frontend/ir"
	"github.com/opal-lang/opal/frontend/types"
	"github.com/opal-lang/opal/util"
)

// ErasedSignature is a member signature after erasure. Return is nil for void
type ErasedSignature struct {
	Params []ir.Type
	Return ir.Type
}

func (s ErasedSignature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	ret := "void"
	if s.Return != nil {
		ret = s.Return.String()
	}
	return "(" + strings.Join(params, ", ") + ") " + ret
}

func (s ErasedSignature) equal(other ErasedSignature) bool {
	if !util.SlicesEquivalent(s.Params, other.Params) {
		return false
	}
	if (s.Return == nil) != (other.Return == nil) {
		return false
	}
	return s.Return == nil || s.Return.Hash() == other.Return.Hash()
}

// BridgeEntry records a synthetic forwarding method the runtime must add to
// Class: a member with the ancestor's erased signature (Inherited) that
// forwards to the class's own erased override (Target). Without it, erasure
// would silently sever overriding wherever the two signatures diverge
type BridgeEntry struct {
	Class     string
	Method    string
	Inherited ErasedSignature
	Target    ErasedSignature
}

func (b BridgeEntry) String() string {
	return b.Class + "." + b.Method + b.Inherited.String() + " -> " + b.Method + b.Target.String()
}

// bridgeTable scans every checked declaration for overrides whose erased
// signature differs from the erased signature the ancestor declared. The
// table is deterministic: sorted by class, method, then inherited signature
func (e *Eraser) bridgeTable(defs []*types.TypeDefinition) []BridgeEntry {
	var entries []BridgeEntry
	seen := make(map[string]struct{})
	for _, def := range defs {
		for _, sig := range def.Methods() {
			own := erasedSignatureOf(sig)
			for ancestor := range e.checked.Ancestors(def) {
				inherited, ok := ancestor.Method(sig.Name(), len(sig.Params()))
				if !ok {
					continue
				}
				bridge := erasedSignatureOf(inherited)
				if bridge.equal(own) {
					continue
				}
				key := def.Name() + "#" + sig.Name() + "#" + bridge.String()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				entries = append(entries, BridgeEntry{
					Class:     def.Name(),
					Method:    sig.Name(),
					Inherited: bridge,
					Target:    own,
				})
			}
		}
	}
	slices.SortFunc(entries, func(a, b BridgeEntry) int {
		if c := strings.Compare(a.Class, b.Class); c != 0 {
			return c
		}
		if c := strings.Compare(a.Method, b.Method); c != 0 {
			return c
		}
		return strings.Compare(a.Inherited.String(), b.Inherited.String())
	})
	return entries
}

// erasedSignatureOf erases a member signature as its declaring class sees it:
// parameters collapse to the erasure of their own bounds, not to any
// instantiation a subclass inherits them at
func erasedSignatureOf(sig types.MethodSig) ErasedSignature {
	out := ErasedSignature{}
	for _, p := range sig.Params() {
		out.Params = append(out.Params, types.SurfaceOf(types.Erase(p)))
	}
	if sig.Return() != nil {
		out.Return = types.SurfaceOf(types.Erase(sig.Return()))
	}
	return out
}
