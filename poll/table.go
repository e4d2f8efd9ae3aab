package poll

// Registration is the dispatcher's record of one registered source.
type Registration struct {
	Token    Token
	Interest Interest
	Mode     Mode
}

type entry struct {
	Registration
	source Source
}

// table maps live tokens to their registration and sources back to their
// token. It holds no locks: only the goroutine owning the Poll touches it.
type table struct {
	tokens  map[Token]*entry
	sources map[Source]Token
}

func newTable() *table {
	return &table{
		tokens:  make(map[Token]*entry),
		sources: make(map[Source]Token),
	}
}

func (t *table) len() int { return len(t.tokens) }

func (t *table) byToken(token Token) (*entry, bool) {
	e, ok := t.tokens[token]
	return e, ok
}

func (t *table) bySource(src Source) (Token, bool) {
	token, ok := t.sources[src]
	return token, ok
}

func (t *table) insert(src Source, reg Registration) {
	t.tokens[reg.Token] = &entry{Registration: reg, source: src}
	t.sources[src] = reg.Token
}

func (t *table) update(token Token, interest Interest, mode Mode) {
	if e, ok := t.tokens[token]; ok {
		e.Interest = interest
		e.Mode = mode
	}
}

func (t *table) remove(token Token) {
	e, ok := t.tokens[token]
	if !ok {
		return
	}
	delete(t.tokens, token)
	delete(t.sources, e.source)
}

func (t *table) each(fn func(e *entry)) {
	for _, e := range t.tokens {
		fn(e)
	}
}
