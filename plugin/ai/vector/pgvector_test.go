package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterClausesBindsKeysAndValues(t *testing.T) {
	where, args := filterClauses("kb_p1", Filter{
		"category": "RULES",
		"source":   "user's \"notes\"; DROP TABLE vector_point",
	})

	require.Len(t, where, 3)
	assert.Equal(t, "collection = $1", where[0])
	assert.Equal(t, "payload->>$2 = $3", where[1])
	assert.Equal(t, "payload->>$4 = $5", where[2])

	require.Len(t, args, 5)
	assert.Equal(t, "kb_p1", args[0])
	assert.Equal(t, "category", args[1])
	assert.Equal(t, "RULES", args[2])
	assert.Equal(t, "source", args[3])
	assert.Equal(t, "user's \"notes\"; DROP TABLE vector_point", args[4])

	// No filter content ends up in the SQL text.
	for _, clause := range where {
		assert.NotContains(t, clause, "category")
		assert.NotContains(t, clause, "RULES")
		assert.NotContains(t, clause, "DROP TABLE")
	}
}

func TestFilterClausesStableKeyOrder(t *testing.T) {
	first, _ := filterClauses("c", Filter{"b": 1, "a": 2, "c": 3})
	for i := 0; i < 5; i++ {
		where, args := filterClauses("c", Filter{"b": 1, "a": 2, "c": 3})
		assert.Equal(t, first, where)
		assert.Equal(t, []any{"c", "a", "2", "b", "1", "c", "3"}, args)
	}
}

func TestFilterClausesEmptyFilter(t *testing.T) {
	where, args := filterClauses("mem_p1", nil)
	assert.Equal(t, []string{"collection = $1"}, where)
	assert.Equal(t, []any{"mem_p1"}, args)
}
