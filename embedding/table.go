package embedding

import (
	"fmt"
	"math"

	"github.com/rushteam/artrec/core"
)

// Table 是文章向量表：有序的文章 ID、稠密的行主序矩阵、ID → 行号索引以及预计算的行范数。
//
// 构建完成后只读，可被任意多个 goroutine 并发读取。
type Table struct {
	ids   []int64
	index map[int64]int
	data  []float64 // len(ids) * dim，行主序
	norms []float64
	dim   int
}

// Build 把任一形态的向量数据规范化为 Table。
// knownIDs 仅对 MatrixSource 生效：第 i 行属于 knownIDs[i]。
func Build(src Source, knownIDs []int64) (*Table, error) {
	switch s := src.(type) {
	case MappingSource:
		ids := make([]int64, len(s.Entries))
		rows := make([][]float64, len(s.Entries))
		for i, e := range s.Entries {
			ids[i] = e.ArticleID
			rows[i] = e.Vector
		}
		return build(ids, rows)
	case *MappingSource:
		return Build(*s, knownIDs)
	case TableSource:
		if len(s.Labels) != len(s.Rows) {
			return nil, integrityError("table has %d labels but %d rows", len(s.Labels), len(s.Rows))
		}
		return build(s.Labels, s.Rows)
	case *TableSource:
		return Build(*s, knownIDs)
	case MatrixSource:
		if len(s.Rows) < len(knownIDs) {
			return nil, integrityError("matrix has %d rows, fewer than %d known ids", len(s.Rows), len(knownIDs))
		}
		return build(knownIDs, s.Rows[:len(knownIDs)])
	case *MatrixSource:
		return Build(*s, knownIDs)
	case nil:
		return nil, integrityError("no embeddings source")
	default:
		return nil, integrityError("unsupported embeddings source %T", src)
	}
}

func build(ids []int64, rows [][]float64) (*Table, error) {
	t := &Table{
		ids:   make([]int64, len(ids)),
		index: make(map[int64]int, len(ids)),
		norms: make([]float64, len(ids)),
	}
	copy(t.ids, ids)
	if len(ids) == 0 {
		return t, nil
	}

	t.dim = len(rows[0])
	if t.dim == 0 {
		return nil, integrityError("article %d has an empty vector", ids[0])
	}
	t.data = make([]float64, len(ids)*t.dim)

	for i, id := range ids {
		if prev, ok := t.index[id]; ok {
			return nil, integrityError("duplicate article id %d at rows %d and %d", id, prev, i)
		}
		t.index[id] = i

		row := rows[i]
		if len(row) != t.dim {
			return nil, integrityError("article %d has dimension %d, expected %d", id, len(row), t.dim)
		}
		var sum float64
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, integrityError("article %d has non-finite component at %d", id, j)
			}
			sum += v * v
		}
		copy(t.data[i*t.dim:(i+1)*t.dim], row)
		t.norms[i] = math.Sqrt(sum)
	}
	return t, nil
}

func integrityError(format string, args ...any) error {
	return core.WrapDomainError(core.ModuleEmbedding, core.ErrorCodeDataIntegrity,
		"embedding: invalid table", fmt.Errorf(format, args...))
}

// Len 返回文章数。
func (t *Table) Len() int { return len(t.ids) }

// Dim 返回向量维度；空表为 0。
func (t *Table) Dim() int { return t.dim }

// IDs 返回表顺序的文章 ID（只读，不要修改）。
func (t *Table) IDs() []int64 { return t.ids }

// ID 返回第 i 行的文章 ID。
func (t *Table) ID(i int) int64 { return t.ids[i] }

// Index 返回文章所在行号。
func (t *Table) Index(id int64) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// Contains 判断文章是否已索引。
func (t *Table) Contains(id int64) bool {
	_, ok := t.index[id]
	return ok
}

// Row 返回第 i 行向量（共享底层存储，只读）。
func (t *Table) Row(i int) []float64 {
	return t.data[i*t.dim : (i+1)*t.dim : (i+1)*t.dim]
}

// Rows 返回 [from, to) 行组成的连续切片（共享底层存储，只读）。
func (t *Table) Rows(from, to int) []float64 {
	return t.data[from*t.dim : to*t.dim : to*t.dim]
}

// Norm 返回第 i 行的 L2 范数。
func (t *Table) Norm(i int) float64 { return t.norms[i] }

// Vector 按文章 ID 查找向量。
func (t *Table) Vector(id int64) ([]float64, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return t.Row(i), true
}
