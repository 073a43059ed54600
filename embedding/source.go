package embedding

import "github.com/rushteam/artrec/core"

// Source 是向量数据在进入引擎前的统一形态。
//
// 数据文件可能是三种形状之一，入库时一次性识别成具体类型，之后不再做运行时判断：
//   - MappingSource：文章 ID → 向量 的映射（保留条目顺序）
//   - TableSource：带行标签的表（标签即文章 ID）
//   - MatrixSource：裸矩阵，按位置与已知文章 ID 列表对齐
//
// 该接口是封闭的，只有本包内的类型可以实现。
type Source interface {
	kind() string
}

// MappingSource 文章 ID → 向量 的映射，Entries 的顺序即表顺序。
type MappingSource struct {
	Entries []core.ArticleVector
}

func (MappingSource) kind() string { return "mapping" }

// TableSource 带行标签的表，Labels[i] 对应 Rows[i]。
type TableSource struct {
	Labels []int64
	Rows   [][]float64
}

func (TableSource) kind() string { return "table" }

// MatrixSource 裸矩阵，Rows[i] 对应 knownIDs[i]；多出的行被忽略。
type MatrixSource struct {
	Rows [][]float64
}

func (MatrixSource) kind() string { return "matrix" }

// Kind 返回数据源类型名，用于日志。
func Kind(src Source) string {
	if src == nil {
		return "none"
	}
	return src.kind()
}
