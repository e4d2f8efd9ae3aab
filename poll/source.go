package poll

// Source is anything that can be registered with a Poll.
//
// Poll validates the call against its table and then hands the request to the
// source, which forwards it to the platform selector through the Registry:
// FdSource for descriptors, UserSource for in-process readiness. Sources are
// used as map keys, so implementations must be comparable; pointer receivers
// are the norm.
type Source interface {
	Register(r *Registry, token Token, interest Interest, mode Mode) error
	Reregister(r *Registry, token Token, interest Interest, mode Mode) error
	Deregister(r *Registry) error
}
