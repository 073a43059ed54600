package core

import "math"

// UserProfile 是用户画像：用户评分过的文章向量按隐式评分加权的均值。
//
// 画像只在全量 fit 时构建，构建完成后只读；任何评分变化都需要全量重建。
//
//	字段          作用
//	Vector        与文章向量同维度的画像向量（排序核心）
//	Weights       参与聚合的文章及其评分（仅用于追溯，不参与打分）
//	TotalWeight   评分权重之和；为 0 时画像退化为零向量
type UserProfile struct {
	UserID      int64
	Vector      []float64
	Weights     map[int64]int
	TotalWeight float64

	norm float64
}

// NewUserProfile 创建一个维度为 dim 的空画像。
func NewUserProfile(userID int64, dim int) *UserProfile {
	return &UserProfile{
		UserID:  userID,
		Vector:  make([]float64, dim),
		Weights: make(map[int64]int),
	}
}

// Seal 计算并缓存画像向量的范数，构建完成后调用一次。
func (p *UserProfile) Seal() {
	var sum float64
	for _, v := range p.Vector {
		sum += v * v
	}
	p.norm = math.Sqrt(sum)
}

// Norm 返回画像向量的 L2 范数（Seal 之后有效）。
func (p *UserProfile) Norm() float64 {
	return p.norm
}

// Personalizable 表示能否基于该画像做个性化推荐。
// 零向量画像（没有可索引的评分、或向量全零）下余弦相似度无定义，视为冷启动用户。
func (p *UserProfile) Personalizable() bool {
	return p != nil && p.TotalWeight > 0 && p.norm > 0
}
