package types

// Env is a chained variable-type environment, extended at every binder
// (section 4.2: "a single bottom-up pass with a variable-type environment
// extended at every binder"). It doubles as the alias-resolution
// Environment used by Canonicalize: a lookup that misses locally falls
// through to the alias/record table at the root.
type Env struct {
	bindings map[string]Type
	parent   *Env
	aliases  map[string]Type // only populated at the root
}

// NewRootEnv creates the module-wide environment: aliases resolves record
// and alias names for Canonicalize, globals is the initial set of bindings
// (top-level function declarations and definitions).
func NewRootEnv(aliases map[string]Type, globals map[string]Type) *Env {
	bindings := make(map[string]Type, len(globals))
	for k, v := range globals {
		bindings[k] = v
	}
	return &Env{bindings: bindings, aliases: aliases}
}

// Child extends e with a fresh, empty binder scope.
func (e *Env) Child() *Env {
	return &Env{bindings: make(map[string]Type), parent: e}
}

// Bind returns a new child environment with name bound to t, leaving e
// unmodified (every pass builds a fresh tree; environments are likewise
// never mutated in place once shared).
func (e *Env) Bind(name string, t Type) *Env {
	c := e.Child()
	c.bindings[name] = t
	return c
}

// Lookup walks the scope chain for name.
func (e *Env) Lookup(name string) (Type, bool) {
	for env := e; env != nil; env = env.parent {
		if t, ok := env.bindings[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Resolve implements Environment for Canonicalize, delegating to the
// alias/record table at the environment's root.
func (e *Env) Resolve(name string) (Type, bool) {
	root := e
	for root.parent != nil {
		root = root.parent
	}
	t, ok := root.aliases[name]
	return t, ok
}
