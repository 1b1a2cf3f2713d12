package pages

import (
	"reflect"
	"testing"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		pageCount int
		expected  []int
	}{
		{
			name:      "ranges and singles sorted unique",
			spec:      "1-3,5",
			pageCount: 10,
			expected:  []int{1, 2, 3, 5},
		},
		{
			name:      "duplicates collapse",
			spec:      "3,1,3,2,2",
			pageCount: 10,
			expected:  []int{1, 2, 3},
		},
		{
			name:      "inverted range skipped",
			spec:      "5-2",
			pageCount: 10,
			expected:  nil,
		},
		{
			name:      "out of range dropped",
			spec:      "0,4,11",
			pageCount: 10,
			expected:  []int{4},
		},
		{
			name:      "garbage tokens dropped",
			spec:      "a,1-x,2",
			pageCount: 10,
			expected:  []int{2},
		},
		{
			name:      "range clamped to page count",
			spec:      "8-12",
			pageCount: 10,
			expected:  []int{8, 9, 10},
		},
		{
			name:      "whitespace tolerated",
			spec:      " 1 - 3 , 5 ",
			pageCount: 10,
			expected:  []int{1, 2, 3, 5},
		},
		{
			name:      "empty spec",
			spec:      "",
			pageCount: 10,
			expected:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseSelection(tt.spec, tt.pageCount)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ParseSelection(%q, %d) = %v, expected %v", tt.spec, tt.pageCount, result, tt.expected)
			}
		})
	}
}

func TestParseSelection_BoundsInvariant(t *testing.T) {
	specs := []string{"1-100", "-5-5", "0-3", "99", "2,4,6-8", "10-1"}
	for _, spec := range specs {
		for _, result := range ParseSelection(spec, 7) {
			if result < 1 || result > 7 {
				t.Errorf("ParseSelection(%q, 7) produced out-of-bounds page %d", spec, result)
			}
		}
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		pageCount int
		expected  []int
	}{
		{
			name:      "input order preserved",
			spec:      "3,1,2",
			pageCount: 10,
			expected:  []int{3, 1, 2},
		},
		{
			name:      "duplicates allowed",
			spec:      "2,2,1",
			pageCount: 10,
			expected:  []int{2, 2, 1},
		},
		{
			name:      "ranges expand in place",
			spec:      "5,1-3",
			pageCount: 10,
			expected:  []int{5, 1, 2, 3},
		},
		{
			name:      "bad tokens dropped without reordering",
			spec:      "4,zap,1",
			pageCount: 10,
			expected:  []int{4, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseOrder(tt.spec, tt.pageCount)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ParseOrder(%q, %d) = %v, expected %v", tt.spec, tt.pageCount, result, tt.expected)
			}
		})
	}
}

func TestParseRotations(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		pageCount int
		expected  map[int]int
	}{
		{
			name:      "basic pairs",
			spec:      "1:90,3:270",
			pageCount: 5,
			expected:  map[int]int{1: 90, 3: 270},
		},
		{
			name:      "negative deltas and accumulation",
			spec:      "2:-90,2:180",
			pageCount: 5,
			expected:  map[int]int{2: 90},
		},
		{
			name:      "non multiples of 90 dropped",
			spec:      "1:45,2:90",
			pageCount: 5,
			expected:  map[int]int{2: 90},
		},
		{
			name:      "out of range pages dropped",
			spec:      "0:90,6:90,3:90",
			pageCount: 5,
			expected:  map[int]int{3: 90},
		},
		{
			name:      "malformed pairs dropped",
			spec:      "1,2:,:90,x:y,4:180",
			pageCount: 5,
			expected:  map[int]int{4: 180},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseRotations(tt.spec, tt.pageCount)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ParseRotations(%q, %d) = %v, expected %v", tt.spec, tt.pageCount, result, tt.expected)
			}
		})
	}
}

func TestZeroBased(t *testing.T) {
	result := ZeroBased([]int{1, 5, 10})
	expected := []int{0, 4, 9}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("ZeroBased = %v, expected %v", result, expected)
	}
}
