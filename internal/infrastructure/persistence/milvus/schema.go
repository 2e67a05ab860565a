// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionEbookFragments 电子书片段集合
	CollectionEbookFragments = "ebook_fragments"

	// partitionPrefix 每本电子书对应一个分区
	partitionPrefix = "ebook_"
)

// EbookFragmentsSchema 电子书片段 Collection Schema
func EbookFragmentsSchema(vectorDim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionEbookFragments,
		Description:    "Ebook text fragments for semantic search",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(vectorDim),
				},
			},
			{
				Name:     "ebook",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "fragment",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

// EbookFragment 片段数据结构
type EbookFragment struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Ebook    string    `json:"ebook"`
	Fragment string    `json:"fragment"`
}

// PartitionName 生成电子书对应的分区名称
func PartitionName(ebook string) string {
	return partitionPrefix + ebook
}

// EbookFromPartition 从分区名称还原电子书名称，非 ebook 分区返回空串
func EbookFromPartition(partition string) string {
	if !strings.HasPrefix(partition, partitionPrefix) {
		return ""
	}
	return strings.TrimPrefix(partition, partitionPrefix)
}
