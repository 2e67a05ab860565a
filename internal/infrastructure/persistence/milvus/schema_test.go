package milvus

import (
	"testing"

	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionName(t *testing.T) {
	assert.Equal(t, "ebook_go_basics", PartitionName("go_basics"))
}

func TestEbookFromPartition(t *testing.T) {
	assert.Equal(t, "go_basics", EbookFromPartition("ebook_go_basics"))
	assert.Empty(t, EbookFromPartition("_default"))
	assert.Empty(t, EbookFromPartition("other_go_basics"))
}

func TestEbookFragmentsSchema(t *testing.T) {
	schema := EbookFragmentsSchema(1536)
	assert.Equal(t, CollectionEbookFragments, schema.CollectionName)
	require.Len(t, schema.Fields, 4)

	byName := map[string]*milvusentity.Field{}
	for _, f := range schema.Fields {
		byName[f.Name] = f
	}

	require.Contains(t, byName, "id")
	assert.True(t, byName["id"].PrimaryKey)
	assert.False(t, byName["id"].AutoID)

	require.Contains(t, byName, "vector")
	assert.Equal(t, milvusentity.FieldTypeFloatVector, byName["vector"].DataType)
	assert.Equal(t, "1536", byName["vector"].TypeParams["dim"])

	require.Contains(t, byName, "ebook")
	require.Contains(t, byName, "fragment")
}
