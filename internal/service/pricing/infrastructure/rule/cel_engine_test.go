// internal/service/pricing/infrastructure/rule/cel_engine_test.go
package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/service/pricing/domain"
)

func engine(t *testing.T) *CELRuleEngine {
	t.Helper()
	e, err := NewCELRuleEngine()
	require.NoError(t, err)
	return e
}

func TestEvaluate_CartTotal(t *testing.T) {
	e := engine(t)

	ok, err := e.Evaluate(`cartTotal >= 200.0`, domain.Fact{CartTotal: 250})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Evaluate(`cartTotal >= 200.0`, domain.Fact{CartTotal: 199.99})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_CompoundExpression(t *testing.T) {
	e := engine(t)

	fact := domain.Fact{CustomerID: "vip-77", CartTotal: 500, Quantity: 3, ProductIDs: []string{"p-1", "p-42"}}

	ok, err := e.Evaluate(`customerId.startsWith("vip-") && quantity >= 2`, fact)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Evaluate(`"p-42" in productIds`, fact)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Evaluate(`"p-99" in productIds`, fact)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_NilProductIDs(t *testing.T) {
	e := engine(t)

	ok, err := e.Evaluate(`size(productIds) == 0`, domain.Fact{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_InvalidRule(t *testing.T) {
	e := engine(t)

	_, err := e.Evaluate(`cartTotal >=`, domain.Fact{})
	assert.Error(t, err, "syntax error")

	_, err = e.Evaluate(`unknownVar > 1`, domain.Fact{})
	assert.Error(t, err, "unknown variable")

	_, err = e.Evaluate(`cartTotal + 1.0`, domain.Fact{})
	assert.Error(t, err, "non-boolean result")
}

func TestEvaluate_CachesPrograms(t *testing.T) {
	e := engine(t)
	const expr = `quantity > 1`

	_, err := e.Evaluate(expr, domain.Fact{Quantity: 2})
	require.NoError(t, err)

	e.mu.RLock()
	_, cached := e.programs[expr]
	e.mu.RUnlock()
	assert.True(t, cached)
}
