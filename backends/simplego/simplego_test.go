// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"os"
	"reflect"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/gomlx/dataformats/backends"
	"github.com/gomlx/dataformats/types/shapes"
)

var backend backends.Backend

func init() {
	klog.InitFlags(nil)
}

func TestMain(m *testing.M) {
	backend = backends.NewWithConfig(BackendName)
	code := m.Run()
	backend.Finalize()
	os.Exit(code)
}

// mustBuffer creates a backend buffer from the flat data, inferring the dtype from the slice type.
func mustBuffer(t *testing.T, flat any, dims ...int) backends.Buffer {
	dtype := dtypes.FromGoType(reflect.TypeOf(flat).Elem())
	buf, err := backend.BufferFromFlatData(0, flat, shapes.Make(dtype, dims...))
	require.NoError(t, err)
	return buf
}

// flatOf downloads the buffer contents as a flat slice.
func flatOf[T any](t *testing.T, buffer backends.Buffer) []T {
	shape, err := backend.BufferShape(buffer)
	require.NoError(t, err)
	flat := make([]T, shape.Size())
	require.NoError(t, backend.BufferToFlatData(buffer, flat))
	return flat
}

func TestBuilderCompile(t *testing.T) {
	builder := backend.Builder("test")
	x, err := builder.Parameter("x", shapes.Make(dtypes.Int32, 4))
	require.NoError(t, err)
	c, err := builder.Constant([]int64{1, 2, 3}, 3)
	require.NoError(t, err)
	ten, err := builder.Constant([]int32{10, 10, 10, 10}, 4)
	require.NoError(t, err)
	sum, err := builder.Add(x, ten)
	require.NoError(t, err)

	// Repeated outputs must be rejected.
	_, err = builder.Compile(sum, sum)
	require.ErrorContains(t, err, "repeated outputs")

	exec, err := builder.Compile(sum, c)
	require.NoError(t, err)
	require.NotNil(t, exec)

	// Builder is frozen after Compile.
	_, err = builder.Parameter("y", shapes.Make(dtypes.Int32, 4))
	require.ErrorContains(t, err, "already been compiled")

	names, inputShapes := exec.Inputs()
	require.Equal(t, []string{"x"}, names)
	require.Len(t, inputShapes, 1)
	require.True(t, inputShapes[0].Equal(shapes.Make(dtypes.Int32, 4)))
	outputShapes := exec.Outputs()
	require.Len(t, outputShapes, 2)
	require.True(t, outputShapes[0].Equal(shapes.Make(dtypes.Int32, 4)))
	require.True(t, outputShapes[1].Equal(shapes.Make(dtypes.Int64, 3)))

	// Wrong number of inputs.
	_, err = exec.Execute([]backends.Buffer{}, nil)
	require.ErrorContains(t, err, "expected 1 inputs")

	// Incompatible parameter shape.
	_, err = exec.Execute([]backends.Buffer{mustBuffer(t, []int32{1, 2, 3}, 3)}, nil)
	require.ErrorContains(t, err, `parameter "x"`)

	// Execution with a donated input: the input buffer must be reused for the output.
	input := mustBuffer(t, []int32{1, 2, 3, 4}, 4)
	inputData := input.(*Buffer).flat.([]int32)
	outputs, err := exec.Execute([]backends.Buffer{input}, []bool{true})
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	require.Equal(t, []int32{11, 12, 13, 14}, flatOf[int32](t, outputs[0]))
	require.True(t, &inputData[0] == &(outputs[0].(*Buffer).flat.([]int32))[0])
	require.Equal(t, []int64{1, 2, 3}, flatOf[int64](t, outputs[1]))

	// Return the constant's output buffer to the pool: it should be re-used on the next call.
	oldOutput1 := outputs[1].(*Buffer)
	require.NoError(t, backend.BufferFinalize(outputs[1]))

	// Execution without donated inputs: the input buffer must be left untouched.
	input = mustBuffer(t, []int32{1, 2, 3, 4}, 4)
	outputs, err = exec.Execute([]backends.Buffer{input}, nil)
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	require.True(t, input.(*Buffer) != outputs[0].(*Buffer))
	require.Equal(t, []int32{1, 2, 3, 4}, flatOf[int32](t, input))
	require.Equal(t, []int32{11, 12, 13, 14}, flatOf[int32](t, outputs[0]))
	require.True(t, oldOutput1 == outputs[1].(*Buffer))
}

func TestBuilderErrors(t *testing.T) {
	builder := backend.Builder("test")
	x, err := builder.Parameter("x", shapes.Make(dtypes.Int32, 4))
	require.NoError(t, err)

	_, err = builder.Parameter("b", shapes.Make(dtypes.Bool, 2))
	require.ErrorContains(t, err, "not supported")

	_, err = builder.Constant([]int32{1, 2, 3}, 4)
	require.ErrorContains(t, err, "dimensions [4] require 4")

	c64, err := builder.Constant([]int64{1})
	require.NoError(t, err)
	_, err = builder.Add(x, c64)
	require.ErrorContains(t, err, "dtypes of operands don't match")

	c3, err := builder.Constant([]int32{1, 2, 3}, 3)
	require.NoError(t, err)
	_, err = builder.Add(x, c3)
	require.ErrorContains(t, err, "incompatible operand shapes")

	floatIndices, err := builder.Constant([]float32{0, 1}, 2)
	require.NoError(t, err)
	_, err = builder.Gather(x, floatIndices, 0)
	require.ErrorContains(t, err, "indices must have an integer dtype")

	indices, err := builder.Constant([]int32{0, 1}, 2)
	require.NoError(t, err)
	_, err = builder.Gather(x, indices, 1)
	require.ErrorContains(t, err, "out-of-bounds")

	// Ops from one builder cannot be used in another.
	otherBuilder := backend.Builder("other")
	_, err = otherBuilder.Add(x, x)
	require.ErrorContains(t, err, "different builder")
}

// compileFor1Input compiles a single-input, single-output graph built by buildFn.
func compileFor1Input(t *testing.T, inputShape shapes.Shape,
	buildFn func(builder backends.Builder, x backends.Op) (backends.Op, error)) backends.Executable {
	builder := backend.Builder(t.Name())
	x, err := builder.Parameter("x", inputShape)
	require.NoError(t, err)
	output, err := buildFn(builder, x)
	require.NoError(t, err)
	exec, err := builder.Compile(output)
	require.NoError(t, err)
	return exec
}

// run1 executes exec with one donated input and returns its single output.
func run1(t *testing.T, exec backends.Executable, input backends.Buffer) backends.Buffer {
	outputs, err := exec.Execute([]backends.Buffer{input}, []bool{true})
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	return outputs[0]
}

func TestExecAdd(t *testing.T) {
	// Vector + scalar.
	exec := compileFor1Input(t, shapes.Make(dtypes.Int32, 4),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			ten, err := builder.Constant([]int32{10})
			if err != nil {
				return nil, err
			}
			return builder.Add(x, ten)
		})
	output := run1(t, exec, mustBuffer(t, []int32{1, 2, 3, 4}, 4))
	require.Equal(t, []int32{11, 12, 13, 14}, flatOf[int32](t, output))

	// Scalar + vector (lhs scalar).
	exec = compileFor1Input(t, shapes.Make(dtypes.Int64, 3),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			hundred, err := builder.Constant([]int64{100})
			if err != nil {
				return nil, err
			}
			return builder.Add(hundred, x)
		})
	output = run1(t, exec, mustBuffer(t, []int64{1, 2, 3}, 3))
	require.Equal(t, []int64{101, 102, 103}, flatOf[int64](t, output))

	// Float16 goes through the float32 conversion path.
	exec = compileFor1Input(t, shapes.Make(dtypes.Float16, 2),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			c, err := builder.Constant([]float16.Float16{float16.Fromfloat32(0.5), float16.Fromfloat32(0.25)}, 2)
			if err != nil {
				return nil, err
			}
			return builder.Add(x, c)
		})
	output = run1(t, exec, mustBuffer(t, []float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(2.5)}, 2))
	require.Equal(t, []float16.Float16{float16.Fromfloat32(2.0), float16.Fromfloat32(2.75)},
		flatOf[float16.Float16](t, output))
}

func TestExecRem(t *testing.T) {
	// Integer remainder takes the sign of the dividend.
	exec := compileFor1Input(t, shapes.Make(dtypes.Int32, 4),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			four, err := builder.Constant([]int32{4})
			if err != nil {
				return nil, err
			}
			return builder.Rem(x, four)
		})
	output := run1(t, exec, mustBuffer(t, []int32{-1, -2, -3, -4}, 4))
	require.Equal(t, []int32{-1, -2, -3, 0}, flatOf[int32](t, output))

	// Add(x, 4) then Rem(., 4) maps negative axis references to their positive counterpart.
	exec = compileFor1Input(t, shapes.Make(dtypes.Int32, 4),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			four, err := builder.Constant([]int32{4})
			if err != nil {
				return nil, err
			}
			shifted, err := builder.Add(x, four)
			if err != nil {
				return nil, err
			}
			return builder.Rem(shifted, four)
		})
	output = run1(t, exec, mustBuffer(t, []int32{-1, -2, -3, -4}, 4))
	require.Equal(t, []int32{3, 2, 1, 0}, flatOf[int32](t, output))
	output = run1(t, exec, mustBuffer(t, []int32{0, 1, 2, 3}, 4))
	require.Equal(t, []int32{0, 1, 2, 3}, flatOf[int32](t, output))

	// Floats use math.Mod.
	exec = compileFor1Input(t, shapes.Make(dtypes.Float32, 2),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			two, err := builder.Constant([]float32{2})
			if err != nil {
				return nil, err
			}
			return builder.Rem(x, two)
		})
	output = run1(t, exec, mustBuffer(t, []float32{7.5, -7.5}, 2))
	require.Equal(t, []float32{1.5, -1.5}, flatOf[float32](t, output))
}

func TestExecConvertDType(t *testing.T) {
	exec := compileFor1Input(t, shapes.Make(dtypes.Int64, 3),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			return builder.ConvertDType(x, dtypes.Int32)
		})
	output := run1(t, exec, mustBuffer(t, []int64{3, -1, 1 << 33}, 3))
	require.Equal(t, []int32{3, -1, 0}, flatOf[int32](t, output))

	// Same-dtype conversion is a copy.
	exec = compileFor1Input(t, shapes.Make(dtypes.Int32, 2),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			return builder.ConvertDType(x, dtypes.Int32)
		})
	input := mustBuffer(t, []int32{5, 7}, 2)
	outputs, err := exec.Execute([]backends.Buffer{input}, nil)
	require.NoError(t, err)
	require.Equal(t, []int32{5, 7}, flatOf[int32](t, outputs[0]))
	require.True(t, input.(*Buffer) != outputs[0].(*Buffer))

	// Float16 conversions round-trip through float32.
	exec = compileFor1Input(t, shapes.Make(dtypes.Float32, 2),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			f16, err := builder.ConvertDType(x, dtypes.Float16)
			if err != nil {
				return nil, err
			}
			return builder.ConvertDType(f16, dtypes.Float32)
		})
	output = run1(t, exec, mustBuffer(t, []float32{1.5, -2}, 2))
	require.Equal(t, []float32{1.5, -2}, flatOf[float32](t, output))

	// Int to float.
	exec = compileFor1Input(t, shapes.Make(dtypes.Int32, 2),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			return builder.ConvertDType(x, dtypes.Float64)
		})
	output = run1(t, exec, mustBuffer(t, []int32{-3, 11}, 2))
	require.Equal(t, []float64{-3, 11}, flatOf[float64](t, output))
}

func TestExecGather(t *testing.T) {
	// Gather rows (axis 0).
	exec := compileFor1Input(t, shapes.Make(dtypes.Int32, 4, 2),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			indices, err := builder.Constant([]int32{3, 0}, 2)
			if err != nil {
				return nil, err
			}
			return builder.Gather(x, indices, 0)
		})
	output := run1(t, exec, mustBuffer(t, []int32{0, 1, 10, 11, 20, 21, 30, 31}, 4, 2))
	shape, err := backend.BufferShape(output)
	require.NoError(t, err)
	require.True(t, shape.Equal(shapes.Make(dtypes.Int32, 2, 2)))
	require.Equal(t, []int32{30, 31, 0, 1}, flatOf[int32](t, output))

	// Gather columns (axis 1).
	exec = compileFor1Input(t, shapes.Make(dtypes.Int64, 2, 3),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			indices, err := builder.Constant([]int32{2, 0}, 2)
			if err != nil {
				return nil, err
			}
			return builder.Gather(x, indices, 1)
		})
	output = run1(t, exec, mustBuffer(t, []int64{1, 2, 3, 4, 5, 6}, 2, 3))
	require.Equal(t, []int64{3, 1, 6, 4}, flatOf[int64](t, output))

	// Out-of-range indices are clamped to the axis borders.
	exec = compileFor1Input(t, shapes.Make(dtypes.Int32, 4),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			indices, err := builder.Constant([]int32{7, -5}, 2)
			if err != nil {
				return nil, err
			}
			return builder.Gather(x, indices, 0)
		})
	output = run1(t, exec, mustBuffer(t, []int32{5, 6, 7, 8}, 4))
	require.Equal(t, []int32{8, 5}, flatOf[int32](t, output))

	// The indices dimensions replace the gathered axis in the output shape.
	exec = compileFor1Input(t, shapes.Make(dtypes.Int32, 4),
		func(builder backends.Builder, x backends.Op) (backends.Op, error) {
			indices, err := builder.Constant([]int64{3, 2, 1, 0}, 2, 2)
			if err != nil {
				return nil, err
			}
			return builder.Gather(x, indices, 0)
		})
	output = run1(t, exec, mustBuffer(t, []int32{5, 6, 7, 8}, 4))
	shape, err = backend.BufferShape(output)
	require.NoError(t, err)
	require.True(t, shape.Equal(shapes.Make(dtypes.Int32, 2, 2)))
	require.Equal(t, []int32{8, 7, 6, 5}, flatOf[int32](t, output))
}
