package rating

import (
	"math"
	"sort"

	"github.com/rushteam/artrec/core"
)

// UserStats 汇总用户名册：每个用户的评分条数与平均评分（保留两位小数），按用户 ID 升序。
func UserStats(ratings []core.Rating) []core.UserStat {
	type acc struct {
		n   int
		sum int
	}
	byUser := make(map[int64]*acc)
	for _, r := range ratings {
		a, ok := byUser[r.UserID]
		if !ok {
			a = &acc{}
			byUser[r.UserID] = a
		}
		a.n++
		a.sum += r.Value
	}

	out := make([]core.UserStat, 0, len(byUser))
	for uid, a := range byUser {
		out = append(out, core.UserStat{
			UserID:    uid,
			Count:     a.n,
			AvgRating: math.Round(float64(a.sum)/float64(a.n)*100) / 100,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// GroupByUser 按用户分组评分，保持每个用户内的原始顺序。
func GroupByUser(ratings []core.Rating) map[int64][]core.Rating {
	out := make(map[int64][]core.Rating)
	for _, r := range ratings {
		out[r.UserID] = append(out[r.UserID], r)
	}
	return out
}
