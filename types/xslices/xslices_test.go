package xslices

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestMap(t *testing.T) {
	count := 17
	in := make([]int, count)
	for ii := 0; ii < count; ii++ {
		in[ii] = ii
	}
	out := Map(in, func(v int) int32 { return int32(v + 1) })
	for ii := 0; ii < count; ii++ {
		assert.Equalf(t, int32(ii+1), out[ii], "element %d doesn't match", ii)
	}
}

func TestAtAndLast(t *testing.T) {
	slice := []int{0, 1, 2, 3, 4, 5}
	assert.Equal(t, 5, At(slice, -1))
	assert.Equal(t, 4, At(slice, -2))
	assert.Equal(t, 5, Last(slice))
}

func TestCopyAndFillSlice(t *testing.T) {
	slice := []int{1, 2, 3}
	slice2 := Copy(slice)
	assert.Equal(t, slice, slice2)
	slice2[0] = 7
	assert.Equal(t, 1, slice[0])
	assert.Nil(t, Copy[int](nil))

	filled := make([]float32, 5)
	FillSlice(filled, float32(2.5))
	assert.Equal(t, []float32{2.5, 2.5, 2.5, 2.5, 2.5}, filled)
}

func TestKeys(t *testing.T) {
	m := map[string]int{"c": 2, "a": 0, "b": 1}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, Keys(m))
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(m))
}

func TestIota(t *testing.T) {
	assert.Equal(t, []int32{3, 4, 5}, Iota(int32(3), 3))
	assert.Equal(t, []float64{0, 1}, Iota(0.0, 2))
}

func TestSliceToGoStr(t *testing.T) {
	assert.Equal(t, "[][]int32{{0, 1}, {2, 3}}", SliceToGoStr([][]int32{{0, 1}, {2, 3}}))
	assert.Equal(t, "[]float64{1.5}", SliceToGoStr([]float64{1.5}))
}

func TestSlicesInDelta(t *testing.T) {
	assert.True(t, SlicesInDelta([]float32{1, 2}, []float32{1, 2.05}, 0.1))
	assert.False(t, SlicesInDelta([]float32{1, 2}, []float32{1, 2.5}, 0.1))
	assert.False(t, SlicesInDelta([]float32{1, 2}, []float32{1, 2, 3}, 0.1))
	assert.True(t, SlicesInDelta([][]int32{{0, 1}}, [][]int32{{0, 1}}, 0))
	assert.False(t, SlicesInDelta([]int32{0}, []int64{0}, 0))
}
