package core

import "math"

// ArticleVector 是一篇文章的内容向量。同一张表内所有向量维度相同、ArticleID 唯一。
type ArticleVector struct {
	ArticleID int64
	Vector    []float64
}

// Article 是文章元数据，只用于展示补充，不参与打分。
type Article struct {
	ID         int64
	CategoryID int64
	WordsCount int64

	// Attrs 保留元数据文件中的其余列（原始字符串）
	Attrs map[string]string
}

// MissingEngagement 表示缺失或非数值的参与度。
var MissingEngagement = math.NaN()

// Interaction 是一次用户/文章接触的原始记录。
// Engagement 是参与时长的代理指标（如 session_size），缺失时为 NaN。
type Interaction struct {
	UserID     int64
	ArticleID  int64
	Engagement float64
}

// HasEngagement 判断参与度是否为有效数值。
func (in Interaction) HasEngagement() bool {
	return !math.IsNaN(in.Engagement) && !math.IsInf(in.Engagement, 0)
}

// Rating 是由 Interaction 推导出的隐式评分，取值 {1,2,3}。
type Rating struct {
	UserID    int64
	ArticleID int64
	Value     int
}

// 隐式评分取值范围
const (
	RatingLow    = 1
	RatingMedium = 2
	RatingHigh   = 3
)

// UserStat 是用户名册中的一行：评分条数与平均评分。
type UserStat struct {
	UserID    int64   `json:"user_id"`
	Count     int     `json:"n"`
	AvgRating float64 `json:"avg_rating"`
}

// Recommendation 是一条推荐结果，Score 为余弦相似度，范围 [-1, 1]。
type Recommendation struct {
	ArticleID int64
	Score     float64
}
