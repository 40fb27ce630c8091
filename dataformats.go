// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dataformats implements lowering kernels that convert tensor quantities
// between data formats (axis layouts, like NHWC and NCHW) by emitting computation
// graph fragments.
//
// A data format names the axes of a rank-4 tensor in their layout order: "NHWC" is
// batch, height, width, channels. Converting between two formats is a permutation
// of axis positions (see PermutationBetween), and two kernels apply it to the small
// tensors that carry layout information around a computation:
//
//   - DimMap remaps a tensor of axis indices: each element, an axis position in
//     the source format, becomes the position of the same axis in the destination
//     format. Negative indices wrap around Python style. See NewDimMap.
//   - VecPermute reorders a per-axis vector of length 4 (or a [4, 2] matrix of
//     per-axis pairs) from the source format's axis order to the destination
//     format's. See NewVecPermute.
//
// Kernels follow a two-phase contract: construction validates the static
// attributes (formats and element dtype) and derives the permutation table once;
// Compile validates the input's shape and emits the fragment into the input's
// graph, without executing anything. Execution happens whenever the caller
// compiles and runs the enclosing graph -- see the graph package. A constructed
// kernel is immutable and safe for concurrent use.
//
// The Registry maps (operation name, element dtype, placement) to kernel
// factories, so hosting compilers can instantiate kernels from serialized
// attributes. See NewRegistry for the built-in registrations.
package dataformats

// NumAxes is the number of axes named by a Format. Formats are fixed length: every
// format names exactly 4 axes.
const NumAxes = 4
