package concept

// Model gives macros read access to the growing concept set.
type Model interface {
	// Lookup returns the concept with the given key.
	Lookup(key string) (*Instance, bool)
	// Resolve returns the target of a reference, by handle when bound and
	// by key otherwise.
	Resolve(ref Ref) (*Instance, bool)
	// ByType returns the concepts of the named type or of types derived from
	// it, in the order they entered the model.
	ByType(typeName string) []*Instance
}

// Edge is an explicit dependency: the concept keyed Before must be fully
// processed before the concept keyed After.
type Edge struct {
	Before string
	After  string
}

// Expansion is the output of a macro evaluation.
type Expansion struct {
	Concepts []*Instance
	Edges    []Edge
}

// Add appends concepts to the expansion.
func (e *Expansion) Add(concepts ...*Instance) {
	e.Concepts = append(e.Concepts, concepts...)
}

// DependsOn records that after must be processed after before.
func (e *Expansion) DependsOn(after, before string) {
	e.Edges = append(e.Edges, Edge{Before: before, After: after})
}

// Macro synthesizes new concepts from a trigger concept. A macro is invoked
// once for every concept of its trigger type, including derived types.
// Returning an error rejects the trigger concept as semantically invalid.
type Macro interface {
	Name() string
	Trigger() string
	Expand(trigger *Instance, model Model) (Expansion, error)
}

// Validator is optionally implemented by macros that check semantic
// preconditions once the model is complete.
type Validator interface {
	Validate(trigger *Instance, model Model) error
}

// MacroFunc adapts a function to the Macro interface.
type MacroFunc struct {
	MacroName   string
	TriggerType string
	Fn          func(trigger *Instance, model Model) (Expansion, error)
}

// Name implements Macro.
func (m MacroFunc) Name() string { return m.MacroName }

// Trigger implements Macro.
func (m MacroFunc) Trigger() string { return m.TriggerType }

// Expand implements Macro.
func (m MacroFunc) Expand(trigger *Instance, model Model) (Expansion, error) {
	return m.Fn(trigger, model)
}

// Initializer fills members that cannot be written in the DSL syntax. It
// runs right after the parser produced a concept of its type and may return
// companion concepts, which later statements of the same script can
// reference.
type Initializer interface {
	Type() string
	Initialize(inst *Instance) ([]*Instance, error)
}

// InitializerFunc adapts a function to the Initializer interface.
type InitializerFunc struct {
	TypeName string
	Fn       func(inst *Instance) ([]*Instance, error)
}

// Type implements Initializer.
func (f InitializerFunc) Type() string { return f.TypeName }

// Initialize implements Initializer.
func (f InitializerFunc) Initialize(inst *Instance) ([]*Instance, error) {
	return f.Fn(inst)
}
