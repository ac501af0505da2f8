// Package builtin provides the bundled concept plugin: modules, entities,
// properties and the constraints declared on them.
package builtin

import "github.com/leapstack-labs/conceptc/pkg/concept"

// Concept types of the bundled plugin.
var (
	Module = &concept.Type{
		Name:    "ModuleInfo",
		Keyword: "Module",
		Members: []concept.Member{
			concept.KeyString("Name"),
			{Name: "Schema", Kind: concept.Scalar, Scalar: concept.String, NonParsable: true},
		},
	}

	Entity = &concept.Type{
		Name:    "EntityInfo",
		Keyword: "Entity",
		Members: []concept.Member{
			concept.KeyParent("Module", Module),
			concept.KeyString("Name"),
		},
	}

	// Property is the abstract base of all property types.
	Property = &concept.Type{
		Name: "PropertyInfo",
		Members: []concept.Member{
			concept.KeyParent("DataStructure", Entity),
			concept.KeyString("Name"),
		},
	}

	ShortString = property("ShortStringPropertyInfo", "ShortString")
	LongString  = property("LongStringPropertyInfo", "LongString")
	Integer     = property("IntegerPropertyInfo", "Integer")
	Bool        = property("BoolPropertyInfo", "Bool")

	Reference = &concept.Type{
		Name:    "ReferencePropertyInfo",
		Keyword: "Reference",
		Base:    Property,
		Members: []concept.Member{
			concept.RefMember("Referenced", Entity),
		},
	}

	Extends = &concept.Type{
		Name:    "EntityExtendsInfo",
		Keyword: "Extends",
		Members: []concept.Member{
			concept.KeyParent("Extension", Entity),
			concept.RefMember("Base", Entity),
		},
	}

	Required = &concept.Type{
		Name:    "RequiredPropertyInfo",
		Keyword: "Required",
		Members: []concept.Member{
			concept.KeyParent("Property", Property),
		},
	}

	Unique = &concept.Type{
		Name:    "UniqueMultiplePropertiesInfo",
		Keyword: "Unique",
		Members: []concept.Member{
			concept.KeyParent("DataStructure", Entity),
			concept.KeyString("PropertyNames"),
		},
	}

	// UniqueProperty is created by the Unique macro, one per listed property.
	UniqueProperty = &concept.Type{
		Name: "UniqueMultiplePropertyInfo",
		Members: []concept.Member{
			concept.KeyRef("Unique", Unique),
			concept.KeyRef("Property", Property),
		},
	}

	// ForeignKey is created for every reference property.
	ForeignKey = &concept.Type{
		Name: "ForeignKeyInfo",
		Members: []concept.Member{
			concept.KeyRef("Property", Reference),
			concept.StringMember("Constraint"),
		},
	}

	// SqlDependsOn declares an explicit ordering dependency on any concept.
	SqlDependsOn = &concept.Type{
		Name:    "SqlDependsOnInfo",
		Keyword: "SqlDependsOn",
		Members: []concept.Member{
			concept.KeyParent("Dependent", Entity),
			{Name: "DependsOn", Kind: concept.Reference, Key: true},
		},
	}
)

func property(name, keyword string) *concept.Type {
	return &concept.Type{Name: name, Keyword: keyword, Base: Property}
}

// Types returns the bundled concept types in registration order.
func Types() []*concept.Type {
	return []*concept.Type{
		Module, Entity, Property,
		ShortString, LongString, Integer, Bool, Reference,
		Extends, Required, Unique, UniqueProperty, ForeignKey, SqlDependsOn,
	}
}
