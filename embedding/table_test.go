package embedding

import (
	"errors"
	"math"
	"testing"

	"github.com/rushteam/artrec/core"
)

func TestBuild_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		src      Source
		knownIDs []int64
		wantIDs  []int64
		wantDim  int
	}{
		{
			name: "mapping keeps entry order",
			src: MappingSource{Entries: []core.ArticleVector{
				{ArticleID: 20, Vector: []float64{1, 0}},
				{ArticleID: 10, Vector: []float64{0, 1}},
			}},
			wantIDs: []int64{20, 10},
			wantDim: 2,
		},
		{
			name:    "labeled table",
			src:     TableSource{Labels: []int64{3, 1, 2}, Rows: [][]float64{{1, 1, 1}, {2, 2, 2}, {3, 3, 3}}},
			wantIDs: []int64{3, 1, 2},
			wantDim: 3,
		},
		{
			name:     "matrix aligned to known ids",
			src:      MatrixSource{Rows: [][]float64{{1}, {2}}},
			knownIDs: []int64{7, 8},
			wantIDs:  []int64{7, 8},
			wantDim:  1,
		},
		{
			name:     "matrix extra rows ignored",
			src:      &MatrixSource{Rows: [][]float64{{1}, {2}, {3}}},
			knownIDs: []int64{7, 8},
			wantIDs:  []int64{7, 8},
			wantDim:  1,
		},
		{
			name:    "empty mapping",
			src:     MappingSource{},
			wantIDs: []int64{},
			wantDim: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Build(tt.src, tt.knownIDs)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if tbl.Len() != len(tt.wantIDs) {
				t.Fatalf("Len() = %d, want %d", tbl.Len(), len(tt.wantIDs))
			}
			if tbl.Dim() != tt.wantDim {
				t.Errorf("Dim() = %d, want %d", tbl.Dim(), tt.wantDim)
			}
			for i, id := range tt.wantIDs {
				if tbl.ID(i) != id {
					t.Errorf("ID(%d) = %d, want %d", i, tbl.ID(i), id)
				}
				if got, ok := tbl.Index(id); !ok || got != i {
					t.Errorf("Index(%d) = %d,%v, want %d", id, got, ok, i)
				}
			}
		})
	}
}

func TestBuild_Integrity(t *testing.T) {
	tests := []struct {
		name     string
		src      Source
		knownIDs []int64
	}{
		{
			name: "duplicate id",
			src: MappingSource{Entries: []core.ArticleVector{
				{ArticleID: 1, Vector: []float64{1}},
				{ArticleID: 1, Vector: []float64{2}},
			}},
		},
		{
			name: "inconsistent dimension",
			src:  TableSource{Labels: []int64{1, 2}, Rows: [][]float64{{1, 2}, {1}}},
		},
		{
			name:     "matrix shorter than ids",
			src:      MatrixSource{Rows: [][]float64{{1}}},
			knownIDs: []int64{1, 2},
		},
		{
			name: "label row mismatch",
			src:  TableSource{Labels: []int64{1, 2}, Rows: [][]float64{{1}}},
		},
		{
			name: "empty vector",
			src:  MappingSource{Entries: []core.ArticleVector{{ArticleID: 1, Vector: nil}}},
		},
		{
			name: "non-finite component",
			src:  MappingSource{Entries: []core.ArticleVector{{ArticleID: 1, Vector: []float64{math.NaN()}}}},
		},
		{
			name: "nil source",
			src:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.src, tt.knownIDs)
			if err == nil {
				t.Fatal("Build() expected error, got nil")
			}
			if !errors.Is(err, core.ErrDataIntegrity) {
				t.Errorf("errors.Is(err, ErrDataIntegrity) = false, err = %v", err)
			}
			if de := core.GetDomainError(err); de == nil || de.Module != core.ModuleEmbedding {
				t.Errorf("expected embedding domain error, got %v", err)
			}
		})
	}
}

func TestTable_RowsAndNorms(t *testing.T) {
	tbl, err := Build(TableSource{
		Labels: []int64{1, 2},
		Rows:   [][]float64{{3, 4}, {0, 0}},
	}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := tbl.Norm(0); got != 5 {
		t.Errorf("Norm(0) = %v, want 5", got)
	}
	if got := tbl.Norm(1); got != 0 {
		t.Errorf("Norm(1) = %v, want 0", got)
	}
	v, ok := tbl.Vector(1)
	if !ok || v[0] != 3 || v[1] != 4 {
		t.Errorf("Vector(1) = %v,%v", v, ok)
	}
	if _, ok := tbl.Vector(99); ok {
		t.Error("Vector(99) should be absent")
	}
	if got := len(tbl.Rows(0, 2)); got != 4 {
		t.Errorf("len(Rows(0,2)) = %d, want 4", got)
	}
}

func TestBuild_CopiesInput(t *testing.T) {
	row := []float64{1, 2}
	tbl, err := Build(MappingSource{Entries: []core.ArticleVector{{ArticleID: 1, Vector: row}}}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	row[0] = 100
	if tbl.Row(0)[0] != 1 {
		t.Error("table must not alias source rows")
	}
}
