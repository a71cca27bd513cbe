package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSearchFilter(t *testing.T) {
	exclude := primitive.NewObjectID()

	t.Run("empty query only excludes the caller", func(t *testing.T) {
		filter := searchFilter("", exclude)

		assert.Equal(t, bson.M{"$ne": exclude}, filter["_id"])
		assert.NotContains(t, filter, "$or")
	})

	t.Run("query matches name or email case-insensitively", func(t *testing.T) {
		filter := searchFilter("Ali", exclude)

		or, ok := filter["$or"].(bson.A)
		require.True(t, ok)
		require.Len(t, or, 2)

		expected := primitive.Regex{Pattern: "Ali", Options: "i"}
		assert.Equal(t, bson.M{"name": expected}, or[0])
		assert.Equal(t, bson.M{"email": expected}, or[1])
	})

	t.Run("regex metacharacters are escaped", func(t *testing.T) {
		filter := searchFilter("a.b*", exclude)

		or := filter["$or"].(bson.A)
		assert.Equal(t, primitive.Regex{Pattern: `a\.b\*`, Options: "i"}, or[0].(bson.M)["name"])
	})
}
