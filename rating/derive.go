// Package rating 把原始交互日志转换为隐式评分 {1,2,3}。
//
// 参与度先做 log(1+x) 变换，再按全局 25/75 分位数切成三档：
//
//	log <= p25        -> 1
//	p25 < log <= p75  -> 2
//	log > p75         -> 3
//
// 分位数在所有保留行上全局计算，而不是按用户计算。
package rating

import (
	"math"
	"sort"

	"github.com/rushteam/artrec/core"
)

// Result 是一次推导的输出。
type Result struct {
	Ratings []core.Rating

	// Dropped 是因参与度缺失或非有限值被丢弃的行数
	Dropped int

	P25 float64
	P75 float64
}

// Derive 从交互记录推导隐式评分。输出顺序与输入中保留行的顺序一致。
// 没有任何可用行时返回空结果。
func Derive(interactions []core.Interaction) Result {
	type kept struct {
		idx int
		log float64
	}
	rows := make([]kept, 0, len(interactions))
	var res Result
	for i, in := range interactions {
		if !in.HasEngagement() {
			res.Dropped++
			continue
		}
		l := math.Log1p(in.Engagement)
		if math.IsNaN(l) || math.IsInf(l, 0) {
			res.Dropped++
			continue
		}
		rows = append(rows, kept{idx: i, log: l})
	}
	if len(rows) == 0 {
		return res
	}

	logs := make([]float64, len(rows))
	for i, r := range rows {
		logs[i] = r.log
	}
	sort.Float64s(logs)
	res.P25 = Quantile(logs, 0.25)
	res.P75 = Quantile(logs, 0.75)

	res.Ratings = make([]core.Rating, len(rows))
	for i, r := range rows {
		in := interactions[r.idx]
		res.Ratings[i] = core.Rating{
			UserID:    in.UserID,
			ArticleID: in.ArticleID,
			Value:     Bucket(r.log, res.P25, res.P75),
		}
	}
	return res
}

// Bucket 按分位数阈值把对数参与度映射到评分。
func Bucket(log, p25, p75 float64) int {
	switch {
	case log <= p25:
		return core.RatingLow
	case log > p75:
		return core.RatingHigh
	default:
		return core.RatingMedium
	}
}

// Quantile 对已升序排列的样本做线性插值分位数：pos = q*(n-1)。
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
