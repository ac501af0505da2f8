package dslerr_test

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"github.com/leapstack-labs/conceptc/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pos = token.Position{Script: "m.cdsl", Line: 2, Column: 5}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("name is required")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "lex",
			err:  dslerr.NewLexError(pos, "invalid character %q", '$'),
			want: "m.cdsl:2:5: invalid character '$'",
		},
		{
			name: "semantic",
			err:  dslerr.NewSemanticError(pos, "Entity Shop.Customer", cause),
			want: "m.cdsl:2:5: Entity Shop.Customer: name is required",
		},
		{
			name: "reference",
			err:  dslerr.NewReferenceError(pos, "Reference Shop.Order.Buyer", "Target", "Shop.Client"),
			want: `m.cdsl:2:5: Reference Shop.Order.Buyer: member "Target" references "Shop.Client" which does not exist`,
		},
		{
			name: "reference type",
			err:  dslerr.NewReferenceTypeError(pos, "Reference Shop.Order.Buyer", "Target", "Shop.Client", "ModuleInfo", "EntityInfo"),
			want: `m.cdsl:2:5: Reference Shop.Order.Buyer: member "Target" references ModuleInfo "Shop.Client", expected EntityInfo`,
		},
		{
			name: "convergence",
			err:  dslerr.NewConvergenceError(token.Position{}, "Entity", 1000),
			want: "macro expansion did not converge after 1000 iterations (concept type Entity)",
		},
		{
			name: "ordering",
			err:  dslerr.NewOrderingError([]string{"A", "B", "A"}),
			want: "circular dependency: A -> B -> A",
		},
		{
			name: "config",
			err:  dslerr.NewConfigError("Entity", "member %s declared twice", "Name"),
			want: "concept type Entity: member Name declared twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestSyntaxErrorDetails(t *testing.T) {
	plain := dslerr.NewSyntaxError(pos, "expected ';'")
	assert.Equal(t, "m.cdsl:2:5: expected ';'", plain.Error())

	ambiguous := dslerr.NewSyntaxError(pos, "ambiguous statement %s", "Field")
	ambiguous.Candidates = []string{"Attribute", "Column"}
	assert.Equal(t, "m.cdsl:2:5: ambiguous statement Field (candidates: Attribute, Column)", ambiguous.Error())

	rejected := dslerr.NewSyntaxError(pos, "no grammar matches")
	rejected.Reasons = []string{"Entity: expected name", "Enum: expected '{'"}
	assert.Equal(t, "m.cdsl:2:5: no grammar matches:\n  Entity: expected name\n  Enum: expected '{'", rejected.Error())
}

func TestSemanticErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := dslerr.NewSemanticError(pos, "Entity A", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Entity A", err.Concept)
	assert.Equal(t, pos, err.Position())
}

func TestList(t *testing.T) {
	var empty dslerr.List
	assert.NoError(t, empty.Err())
	assert.Equal(t, "no errors", empty.Error())

	one := dslerr.List{dslerr.NewLexError(pos, "bad")}
	require.Error(t, one.Err())
	assert.Equal(t, one[0], one.Err())

	idErr := dslerr.NewIdentityError(pos, "Shop.A", "", "duplicate key %s", "Shop.A")
	many := dslerr.List{dslerr.NewLexError(pos, "bad"), idErr}
	err := many.Err()
	assert.Equal(t, "2 errors:\nm.cdsl:2:5: bad\nm.cdsl:2:5: duplicate key Shop.A", err.Error())

	var target *dslerr.IdentityError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "Shop.A", target.Key)
}
