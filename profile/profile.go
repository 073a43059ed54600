// Package profile 构建用户画像：用户评分过的文章向量按评分加权的均值。
package profile

import (
	"fmt"
	"sort"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/embedding"
)

// Policy 决定评分引用了向量表中不存在的文章时的处理方式。
type Policy string

const (
	// PolicyLenient 跳过未索引文章并计数（默认）
	PolicyLenient Policy = "lenient"
	// PolicyStrict 遇到未索引文章直接失败
	PolicyStrict Policy = "strict"
)

// ParsePolicy 解析配置中的策略名；空串视为 lenient。
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyLenient:
		return PolicyLenient, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("profile: unknown unindexed policy %q", s)
	}
}

type Options struct {
	Policy Policy
}

// Set 是一次全量构建出的画像集合，构建后只读。
type Set struct {
	profiles map[int64]*core.UserProfile
	users    []int64
	skipped  int
	dim      int
}

// Fit 为每个至少有一条评分的用户构建画像。
//
// 只有向量表中存在的文章参与聚合；同一 (用户, 文章) 的多条评分各自累加。
// 用户的评分全部指向未索引文章时，得到零向量画像（Personalizable() == false）。
func Fit(ratings []core.Rating, table *embedding.Table, opts Options) (*Set, error) {
	if opts.Policy == "" {
		opts.Policy = PolicyLenient
	}
	dim := table.Dim()
	s := &Set{
		profiles: make(map[int64]*core.UserProfile),
		dim:      dim,
	}

	for _, r := range ratings {
		p, ok := s.profiles[r.UserID]
		if !ok {
			p = core.NewUserProfile(r.UserID, dim)
			s.profiles[r.UserID] = p
			s.users = append(s.users, r.UserID)
		}

		row, ok := table.Index(r.ArticleID)
		if !ok {
			if opts.Policy == PolicyStrict {
				return nil, fmt.Errorf("user %d article %d: %w", r.UserID, r.ArticleID, core.ErrUnindexedArticle)
			}
			s.skipped++
			continue
		}

		w := float64(r.Value)
		vec := table.Row(row)
		for j, v := range vec {
			p.Vector[j] += w * v
		}
		p.TotalWeight += w
		p.Weights[r.ArticleID] = r.Value
	}

	for _, p := range s.profiles {
		if p.TotalWeight > 0 {
			for j := range p.Vector {
				p.Vector[j] /= p.TotalWeight
			}
		}
		p.Seal()
	}
	sort.Slice(s.users, func(i, j int) bool { return s.users[i] < s.users[j] })
	return s, nil
}

// Get 返回用户画像。
func (s *Set) Get(userID int64) (*core.UserProfile, bool) {
	p, ok := s.profiles[userID]
	return p, ok
}

// Len 返回画像数量。
func (s *Set) Len() int { return len(s.profiles) }

// Skipped 返回 lenient 策略下被跳过的评分条数。
func (s *Set) Skipped() int { return s.skipped }

// Users 返回升序的用户 ID（只读）。
func (s *Set) Users() []int64 { return s.users }

// Dim 返回画像维度。
func (s *Set) Dim() int { return s.dim }

// Degenerate 统计无法个性化的用户数量。
func (s *Set) Degenerate() int {
	n := 0
	for _, p := range s.profiles {
		if !p.Personalizable() {
			n++
		}
	}
	return n
}
