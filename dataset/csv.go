package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rushteam/artrec/core"
)

// ClickColumns 指定点击日志中的列名。
type ClickColumns struct {
	User       string
	Article    string
	Engagement string
}

// DefaultClickColumns 与公开的新闻点击数据集一致；文章列缺失时回退到 click_article_id。
var DefaultClickColumns = ClickColumns{
	User:       "user_id",
	Article:    "article_id",
	Engagement: "session_size",
}

const fallbackArticleColumn = "click_article_id"

func integrityError(format string, args ...any) error {
	return core.WrapDomainError(core.ModuleDataset, core.ErrorCodeDataIntegrity,
		"dataset: malformed input", fmt.Errorf(format, args...))
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	return cr
}

// headerIndex 读取表头并返回 列名 → 下标。
func headerIndex(cr *csv.Reader) (map[string]int, error) {
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, integrityError("empty csv, missing header")
	}
	if err != nil {
		return nil, integrityError("read header: %v", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[h] = i
	}
	return idx, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseID(rec []string, i int, col string, line int) (int64, error) {
	s := field(rec, i)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// pandas 会把含缺失值的整数列写成 "123.0"
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, integrityError("line %d: column %s: invalid id %q", line, col, s)
		}
		id = int64(f)
	}
	return id, nil
}

// parseEngagement 解析参与度；缺失或非数值返回 NaN。
func parseEngagement(s string) float64 {
	if s == "" {
		return core.MissingEngagement
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return core.MissingEngagement
	}
	return v
}

// DecodeClicks 解析点击日志 CSV。
// 用户列、文章列必须存在且为整数；参与度列缺失值或非数值记为 NaN，由评分推导阶段丢弃。
func DecodeClicks(r io.Reader, cols ClickColumns) ([]core.Interaction, error) {
	if cols.User == "" {
		cols.User = DefaultClickColumns.User
	}
	if cols.Article == "" {
		cols.Article = DefaultClickColumns.Article
	}
	if cols.Engagement == "" {
		cols.Engagement = DefaultClickColumns.Engagement
	}

	cr := newCSVReader(r)
	idx, err := headerIndex(cr)
	if err != nil {
		return nil, err
	}
	ui, ok := idx[cols.User]
	if !ok {
		return nil, integrityError("clicks: missing column %s", cols.User)
	}
	ai, ok := idx[cols.Article]
	if !ok {
		if ai, ok = idx[fallbackArticleColumn]; !ok {
			return nil, integrityError("clicks: missing column %s", cols.Article)
		}
	}
	ei, ok := idx[cols.Engagement]
	if !ok {
		return nil, integrityError("clicks: missing column %s", cols.Engagement)
	}

	var out []core.Interaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, integrityError("clicks line %d: %v", line, err)
		}
		uid, err := parseID(rec, ui, cols.User, line)
		if err != nil {
			return nil, err
		}
		aid, err := parseID(rec, ai, cols.Article, line)
		if err != nil {
			return nil, err
		}
		out = append(out, core.Interaction{
			UserID:     uid,
			ArticleID:  aid,
			Engagement: parseEngagement(field(rec, ei)),
		})
	}
	return out, nil
}

// DecodeArticles 解析文章元数据 CSV：article_id 必须存在；category_id、words_count 可选，其余列原样保留。
func DecodeArticles(r io.Reader) ([]core.Article, error) {
	cr := newCSVReader(r)
	idx, err := headerIndex(cr)
	if err != nil {
		return nil, err
	}
	ai, ok := idx["article_id"]
	if !ok {
		return nil, integrityError("articles: missing column article_id")
	}
	ci, hasCategory := idx["category_id"]
	wi, hasWords := idx["words_count"]

	extra := make(map[int]string)
	for name, i := range idx {
		switch name {
		case "article_id", "category_id", "words_count":
		default:
			extra[i] = name
		}
	}

	var out []core.Article
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, integrityError("articles line %d: %v", line, err)
		}
		a := core.Article{}
		if a.ID, err = parseID(rec, ai, "article_id", line); err != nil {
			return nil, err
		}
		if hasCategory && field(rec, ci) != "" {
			if a.CategoryID, err = parseID(rec, ci, "category_id", line); err != nil {
				return nil, err
			}
		}
		if hasWords && field(rec, wi) != "" {
			if a.WordsCount, err = parseID(rec, wi, "words_count", line); err != nil {
				return nil, err
			}
		}
		if len(extra) > 0 {
			a.Attrs = make(map[string]string, len(extra))
			for i, name := range extra {
				a.Attrs[name] = field(rec, i)
			}
		}
		out = append(out, a)
	}
	return out, nil
}
