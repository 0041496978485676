package brpcsys

// NoCopy marks owners of native objects. go vet reports copies of structs
// embedding it.
type NoCopy struct{}

func (*NoCopy) Lock()   {}
func (*NoCopy) Unlock() {}
