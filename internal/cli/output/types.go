package output

// ConceptInfo is one concept in JSON output.
type ConceptInfo struct {
	Key    string            `json:"key"`
	Type   string            `json:"type"`
	Values map[string]string `json:"values"`
}

// BuildOutput is the JSON form of a build.
type BuildOutput struct {
	BuildID    string        `json:"build_id,omitempty"`
	Scripts    int           `json:"scripts"`
	Parsed     int           `json:"parsed"`
	Concepts   []ConceptInfo `json:"concepts"`
	Added      int           `json:"added"`
	Changed    int           `json:"changed"`
	Removed    int           `json:"removed"`
	DurationMS int64         `json:"duration_ms"`
}

// DAGNode is one concept in the dependency graph.
type DAGNode struct {
	Key       string   `json:"key"`
	DependsOn []string `json:"depends_on"`
	UsedBy    []string `json:"used_by"`
}

// DAGLevel groups concepts that depend only on earlier levels.
type DAGLevel struct {
	Level    int       `json:"level"`
	Concepts []DAGNode `json:"concepts"`
}

// DAGOutput is the JSON form of the dependency graph.
type DAGOutput struct {
	Levels        []DAGLevel `json:"levels"`
	TotalConcepts int        `json:"total_concepts"`
	TotalEdges    int        `json:"total_edges"`
}

// DAGFocus lists the transitive dependencies and dependents of one concept.
type DAGFocus struct {
	Key        string   `json:"key"`
	Upstream   []string `json:"upstream"`
	Downstream []string `json:"downstream"`
}

// ChangeInfo is one changed concept.
type ChangeInfo struct {
	Key string            `json:"key"`
	Old map[string]string `json:"old"`
	New map[string]string `json:"new"`
}

// DiffOutput is the JSON form of a diff against the cached build.
type DiffOutput struct {
	Previous string        `json:"previous,omitempty"`
	Added    []ConceptInfo `json:"added"`
	Changed  []ChangeInfo  `json:"changed"`
	Removed  []ConceptInfo `json:"removed"`
	Affected []string      `json:"affected,omitempty"`
}

// MemberInfo describes a concept type member.
type MemberInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Ref  string `json:"ref,omitempty"`
	Key  bool   `json:"key,omitempty"`
}

// TypeInfo describes a concept type.
type TypeInfo struct {
	Name    string       `json:"name"`
	Keyword string       `json:"keyword,omitempty"`
	Base    string       `json:"base,omitempty"`
	Members []MemberInfo `json:"members"`
}

// MacroInfo describes a macro or validator.
type MacroInfo struct {
	Name      string `json:"name"`
	Trigger   string `json:"trigger"`
	Validator bool   `json:"validator,omitempty"`
	Doc       string `json:"doc,omitempty"`
}

// TypesOutput is the JSON form of the types command.
type TypesOutput struct {
	Types  []TypeInfo  `json:"types"`
	Macros []MacroInfo `json:"macros"`
}

// BuildInfo is one cached build.
type BuildInfo struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	Scripts   int    `json:"scripts"`
	Concepts  int    `json:"concepts"`
	Error     string `json:"error,omitempty"`
}
