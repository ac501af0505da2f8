package builtin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/identity"
)

// uniqueMacro expands "Unique A B" into one UniqueMultiplePropertyInfo per
// listed property. The property references resolve like any other, so an
// unknown property name surfaces as a reference error.
type uniqueMacro struct{}

func (uniqueMacro) Name() string    { return "unique-properties" }
func (uniqueMacro) Trigger() string { return Unique.Name }

func (uniqueMacro) Expand(trigger *concept.Instance, _ concept.Model) (concept.Expansion, error) {
	var exp concept.Expansion
	names := strings.Fields(trigger.String("PropertyNames"))
	if len(names) == 0 {
		return exp, errors.New("unique constraint lists no properties")
	}
	unique, err := identity.RefTo(trigger)
	if err != nil {
		return exp, err
	}
	ds := trigger.Ref("DataStructure")
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return exp, fmt.Errorf("property %s listed more than once", name)
		}
		seen[name] = true
		exp.Add(concept.New(UniqueProperty).
			With("Unique", unique).
			With("Property", concept.PendingRef(Property.Name, ds.Path+"."+identity.Quote(name))))
	}
	return exp, nil
}

// foreignKeyMacro creates the foreign key constraint of a reference property.
type foreignKeyMacro struct{}

func (foreignKeyMacro) Name() string    { return "reference-foreign-key" }
func (foreignKeyMacro) Trigger() string { return Reference.Name }

func (foreignKeyMacro) Expand(trigger *concept.Instance, model concept.Model) (concept.Expansion, error) {
	var exp concept.Expansion
	prop, err := identity.RefTo(trigger)
	if err != nil {
		return exp, err
	}
	entity, ok := model.Resolve(trigger.Ref("DataStructure"))
	if !ok {
		return exp, fmt.Errorf("entity %s not found", trigger.Ref("DataStructure").Key())
	}
	exp.Add(concept.New(ForeignKey).
		With("Property", prop).
		With("Constraint", fmt.Sprintf("FK_%s_%s", entity.String("Name"), trigger.String("Name"))))
	return exp, nil
}

// Validate rejects reference property names ending in "ID"; the column
// suffix is added by generators.
func (foreignKeyMacro) Validate(trigger *concept.Instance, _ concept.Model) error {
	if name := trigger.String("Name"); strings.HasSuffix(name, "ID") {
		return fmt.Errorf("reference property name %s must not end with \"ID\"", name)
	}
	return nil
}

// extendsMacro adds the "Base" reference property linking an extension
// entity to the entity it extends.
type extendsMacro struct{}

func (extendsMacro) Name() string    { return "extends-base-reference" }
func (extendsMacro) Trigger() string { return Extends.Name }

func (extendsMacro) Expand(trigger *concept.Instance, _ concept.Model) (concept.Expansion, error) {
	var exp concept.Expansion
	ext, base := trigger.Ref("Extension"), trigger.Ref("Base")
	if ext.Key() == base.Key() {
		return exp, errors.New("an entity cannot extend itself")
	}
	exp.Add(concept.New(Reference).
		With("DataStructure", concept.PendingRef(ext.Type, ext.Path)).
		With("Name", "Base").
		With("Referenced", concept.PendingRef(base.Type, base.Path)))
	return exp, nil
}

// dependsOnMacro turns SqlDependsOn into an explicit ordering edge.
type dependsOnMacro struct{}

func (dependsOnMacro) Name() string    { return "sql-depends-on" }
func (dependsOnMacro) Trigger() string { return SqlDependsOn.Name }

func (dependsOnMacro) Expand(trigger *concept.Instance, _ concept.Model) (concept.Expansion, error) {
	var exp concept.Expansion
	exp.DependsOn(trigger.Ref("Dependent").Key(), trigger.Ref("DependsOn").Key())
	return exp, nil
}

// Macros returns the bundled macros in evaluation order.
func Macros() []concept.Macro {
	return []concept.Macro{
		uniqueMacro{},
		foreignKeyMacro{},
		extendsMacro{},
		dependsOnMacro{},
	}
}

// Initializers returns the bundled initializers.
func Initializers() []concept.Initializer {
	return []concept.Initializer{
		concept.InitializerFunc{
			TypeName: Module.Name,
			Fn: func(inst *concept.Instance) ([]*concept.Instance, error) {
				if v, _ := inst.Value("Schema"); !v.Set {
					inst.With("Schema", inst.String("Name"))
				}
				return nil, nil
			},
		},
	}
}
