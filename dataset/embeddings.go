package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/embedding"
)

// EmbeddingsFormat 是向量文件的编码格式。
type EmbeddingsFormat string

const (
	FormatAuto   EmbeddingsFormat = ""
	FormatJSON   EmbeddingsFormat = "json"
	FormatCSV    EmbeddingsFormat = "csv"
	FormatMatrix EmbeddingsFormat = "matrix"
)

// DetectFormat 按扩展名推断格式：.json / .csv / .bin .f32 .matrix。
func DetectFormat(name string) (EmbeddingsFormat, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".bin", ".f32", ".matrix":
		return FormatMatrix, nil
	default:
		return "", fmt.Errorf("dataset: cannot infer embeddings format from %q", name)
	}
}

// DecodeEmbeddings 按格式解析向量文件，返回对应形态的 embedding.Source。
func DecodeEmbeddings(r io.Reader, format EmbeddingsFormat) (embedding.Source, error) {
	switch format {
	case FormatJSON:
		return DecodeEmbeddingsJSON(r)
	case FormatCSV:
		return DecodeEmbeddingsCSV(r)
	case FormatMatrix:
		return DecodeEmbeddingsMatrix(r)
	default:
		return nil, fmt.Errorf("dataset: unsupported embeddings format %q", format)
	}
}

type jsonEntry struct {
	ArticleID int64     `json:"article_id"`
	Vector    []float64 `json:"vector"`
}

// DecodeEmbeddingsJSON 解析两种 JSON 形态，均得到 MappingSource：
//
//	{"123": [0.1, 0.2], "456": [...]}                  对象：键为文章 ID
//	[{"article_id": 123, "vector": [0.1, 0.2]}, ...]   数组
//
// 对象形态下边读边检查重复键（普通反序列化到 map 会静默覆盖）。
func DecodeEmbeddingsJSON(r io.Reader) (embedding.MappingSource, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	tok, err := dec.Token()
	if err != nil {
		return embedding.MappingSource{}, integrityError("embeddings json: %v", err)
	}

	var src embedding.MappingSource
	switch tok {
	case json.Delim('{'):
		seen := make(map[int64]struct{})
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return src, integrityError("embeddings json: %v", err)
			}
			key, _ := keyTok.(string)
			id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
			if err != nil {
				return src, integrityError("embeddings json: invalid article id %q", key)
			}
			if _, dup := seen[id]; dup {
				return src, integrityError("embeddings json: duplicate article id %d", id)
			}
			seen[id] = struct{}{}

			var vec []float64
			if err := dec.Decode(&vec); err != nil {
				return src, integrityError("embeddings json: article %d: %v", id, err)
			}
			src.Entries = append(src.Entries, core.ArticleVector{ArticleID: id, Vector: vec})
		}
	case json.Delim('['):
		for dec.More() {
			var e jsonEntry
			if err := dec.Decode(&e); err != nil {
				return src, integrityError("embeddings json: entry %d: %v", len(src.Entries), err)
			}
			src.Entries = append(src.Entries, core.ArticleVector{ArticleID: e.ArticleID, Vector: e.Vector})
		}
	default:
		return src, integrityError("embeddings json: expected object or array, got %v", tok)
	}
	return src, nil
}

// DecodeEmbeddingsCSV 解析带行标签的向量表：第一列为文章 ID，其余列为向量分量，首行为表头。
func DecodeEmbeddingsCSV(r io.Reader) (embedding.TableSource, error) {
	cr := newCSVReader(r)
	cr.ReuseRecord = false
	var src embedding.TableSource

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return src, integrityError("embeddings csv: missing header")
		}
		return src, integrityError("embeddings csv: %v", err)
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return src, integrityError("embeddings csv line %d: %v", line, err)
		}
		id, err := parseID(rec, 0, "article_id", line)
		if err != nil {
			return src, err
		}
		vec := make([]float64, len(rec)-1)
		for j := 1; j < len(rec); j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j]), 64)
			if err != nil {
				return src, integrityError("embeddings csv line %d col %d: %v", line, j, err)
			}
			vec[j-1] = v
		}
		src.Labels = append(src.Labels, id)
		src.Rows = append(src.Rows, vec)
	}
	return src, nil
}

// 裸矩阵格式上限，防止损坏的文件头触发超大分配。
const (
	maxMatrixCells = 1 << 31
	maxMatrixRows  = 1 << 26
)

// DecodeEmbeddingsMatrix 解析裸矩阵：小端 uint32 行数、uint32 维度，随后是行主序 float32。
// 行按位置对齐到文章元数据中的文章 ID。
func DecodeEmbeddingsMatrix(r io.Reader) (embedding.MatrixSource, error) {
	br := bufio.NewReader(r)
	var hdr [2]uint32
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return embedding.MatrixSource{}, integrityError("embeddings matrix: header: %v", err)
	}
	rows, dim := int(hdr[0]), int(hdr[1])
	if dim == 0 && rows > 0 {
		return embedding.MatrixSource{}, integrityError("embeddings matrix: %d rows with zero dimension", rows)
	}
	if rows > maxMatrixRows {
		return embedding.MatrixSource{}, integrityError("embeddings matrix: %d rows exceeds limit", rows)
	}
	if uint64(rows)*uint64(dim) > maxMatrixCells {
		return embedding.MatrixSource{}, integrityError("embeddings matrix: %dx%d too large", rows, dim)
	}

	src := embedding.MatrixSource{Rows: make([][]float64, rows)}
	buf := make([]float32, dim)
	for i := 0; i < rows; i++ {
		if err := binary.Read(br, binary.LittleEndian, buf); err != nil {
			return embedding.MatrixSource{}, integrityError("embeddings matrix: row %d: %v", i, err)
		}
		row := make([]float64, dim)
		for j, v := range buf {
			row[j] = float64(v)
		}
		src.Rows[i] = row
	}
	return src, nil
}

// EncodeEmbeddingsMatrix 写出裸矩阵格式（工具与测试使用）。
func EncodeEmbeddingsMatrix(w io.Writer, rows [][]float64) error {
	dim := 0
	if len(rows) > 0 {
		dim = len(rows[0])
	}
	if err := binary.Write(w, binary.LittleEndian, [2]uint32{uint32(len(rows)), uint32(dim)}); err != nil {
		return err
	}
	buf := make([]float32, dim)
	for i, row := range rows {
		if len(row) != dim {
			return fmt.Errorf("row %d has dimension %d, expected %d", i, len(row), dim)
		}
		for j, v := range row {
			if math.Abs(v) > math.MaxFloat32 {
				return fmt.Errorf("row %d col %d overflows float32", i, j)
			}
			buf[j] = float32(v)
		}
		if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
			return err
		}
	}
	return nil
}
