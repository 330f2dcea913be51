package types

// Fresher hands out unique identities for type parameters.
// It is mutable and not suitable for concurrent use
type Fresher struct {
	freshCount ParamID
}

func NewFresher() *Fresher {
	return &Fresher{}
}

func (f *Fresher) newTypeParameter(name, owner string) *TypeParameter {
	param := &TypeParameter{
		id:    f.freshCount,
		name:  name,
		owner: owner,
	}
	f.freshCount++
	return param
}
