// dataformats_inspect prints the permutation tables of a data-format pair, lists the
// built-in kernel registrations, and evaluates sample inputs through the kernels using
// the interpreter backend.
//
// Examples:
//
//	dataformats_inspect -table
//	dataformats_inspect -from NHWC -to HWCN -table -registry
//	dataformats_inspect -dims 0,-1,2,3 -vec 10,20,30,40 -placement Host
package main

import (
	"flag"
	"fmt"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/dataformats"
	"github.com/gomlx/dataformats/backends"
	_ "github.com/gomlx/dataformats/backends/simplego"
	"github.com/gomlx/dataformats/graph"
	"github.com/gomlx/dataformats/types/tensors"
	"github.com/gomlx/dataformats/types/xslices"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
	"os"
	"strconv"
	"strings"
	"sync"
)

var (
	flagFrom = flag.String("from", "NHWC", "Source data format (axis layout). The kernels take one of "+
		"NHWC, NCHW, HWNC or HWCN; -table accepts any 4 distinct symbols.")
	flagTo    = flag.String("to", "NCHW", "Destination data format (axis layout).")
	flagDType = flag.String("dtype", "int32", "Element type for the kernel evaluations: int32 or int64.")

	flagTable    = flag.Bool("table", false, "Print the permutation tables between -from and -to.")
	flagRegistry = flag.Bool("registry", false, "List the built-in kernel registrations.")
	flagDims     = flag.String("dims", "", "Comma-separated axis indices to remap with the "+
		dataformats.OpDimMap+" kernel, e.g. -dims 0,1,2,3. Negative indices wrap around.")
	flagVec = flag.String("vec", "", "Comma-separated per-axis values to reorder with the "+
		dataformats.OpVecPermute+" kernel: either 4 values (a vector) or 8 values (taken as 4 pairs), "+
		"e.g. -vec 10,20,30,40.")
	flagPlacement = flag.String("placement", "Default", "Placement label for the -vec evaluation: Default or Host. "+
		"It marks where a hosting compiler would schedule the kernel and never changes output values.")
)

func main() {
	flag.Parse()
	if len(flag.Args()) > 0 {
		klog.Errorf("Unexpected arguments %q. See 'dataformats_inspect -help'.", flag.Args())
		os.Exit(1)
	}
	if !*flagTable && !*flagRegistry && *flagDims == "" && *flagVec == "" {
		klog.Errorf("Nothing to report. Set at least one of -table, -registry, -dims or -vec. " +
			"See 'dataformats_inspect -help'.")
		os.Exit(1)
	}

	src, dst := dataformats.Format(*flagFrom), dataformats.Format(*flagTo)
	if *flagTable {
		printTables(src, dst)
	}
	if *flagRegistry {
		printRegistry()
	}
	if *flagDims != "" {
		evalDimMap(src, dst, *flagDims)
	}
	if *flagVec != "" {
		evalVecPermute(src, dst, *flagVec)
	}
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == 1 {
				s = headerRowStyle
				return
			}
			switch {
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

var getBackend = sync.OnceValue(func() backends.Backend {
	return backends.New()
})

// kernelDType parses -dtype into one of the dtypes the kernels support.
func kernelDType() dtypes.DType {
	switch strings.ToLower(*flagDType) {
	case "int32":
		return dtypes.Int32
	case "int64":
		return dtypes.Int64
	default:
		klog.Errorf("Invalid -dtype %q: the kernels take int32 or int64.", *flagDType)
		os.Exit(1)
		return dtypes.InvalidDType
	}
}

func parseInts(flagName, csv string) []int64 {
	fields := strings.Split(csv, ",")
	values := make([]int64, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			klog.Errorf("Invalid -%s value %q: %v", flagName, field, err)
			os.Exit(1)
		}
		values = append(values, value)
	}
	return values
}

func tensorFromValues(dtype dtypes.DType, values []int64, dimensions ...int) *tensors.Tensor {
	if dtype == dtypes.Int32 {
		narrowed := xslices.Map(values, func(v int64) int32 { return int32(v) })
		return tensors.FromFlatDataAndDimensions(narrowed, dimensions...)
	}
	return tensors.FromFlatDataAndDimensions(values, dimensions...)
}

func printTables(src, dst dataformats.Format) {
	perm, err := dataformats.PermutationBetween(src, dst)
	if err != nil {
		klog.Errorf("Cannot derive the permutation %s -> %s: %+v", src, dst, err)
		os.Exit(1)
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("Permutation %s -> %s", src, dst)))
	table := newPlainTable(true)
	table.Row("Axis", fmt.Sprintf("%s position", src), fmt.Sprintf("%s position", dst))
	for i := 0; i < dataformats.NumAxes; i++ {
		table.Row(string(src[i]), strconv.Itoa(i), strconv.Itoa(int(perm[i])))
	}
	fmt.Println(table.Render())

	table = newPlainTable(false)
	table.Row("dim-map table (src position to dst position)", fmt.Sprint(perm))
	table.Row("vec-permute gather table (dst position to src position)", fmt.Sprint(perm.Inverse()))
	table.Row("identity", strconv.FormatBool(perm.IsIdentity()))
	fmt.Println(table.Render())
}

func printRegistry() {
	fmt.Println(titleStyle.Render("Built-in kernel registrations"))
	table := newPlainTable(true)
	table.Row("Operation", "DType", "Placement")
	for _, reg := range dataformats.NewRegistry().Registrations() {
		table.Row(reg.Op, reg.DType.String(), reg.Placement.String())
	}
	fmt.Println(table.Render())
}

func evalDimMap(src, dst dataformats.Format, csv string) {
	dtype := kernelDType()
	kernel, err := dataformats.NewDimMap(dtype, src, dst)
	if err != nil {
		klog.Errorf("Cannot build the %s kernel: %+v", dataformats.OpDimMap, err)
		os.Exit(1)
	}
	values := parseInts("dims", csv)
	input := tensorFromValues(dtype, values, len(values))
	output := must.M1(graph.ExecOnce(getBackend(), func(x *graph.Node) *graph.Node {
		return must.M1(kernel.Compile(x))
	}, input))

	fmt.Println(titleStyle.Render(fmt.Sprintf("DimMap %s -> %s", src, dst)))
	table := newPlainTable(false)
	table.Row("input", input.GoStr())
	table.Row("output", output.GoStr())
	table.Row("shape", fmt.Sprintf("%s (%s)", output.Shape(), humanize.Bytes(uint64(output.Memory()))))
	fmt.Println(table.Render())
}

func evalVecPermute(src, dst dataformats.Format, csv string) {
	dtype := kernelDType()
	placement, err := dataformats.PlacementString(*flagPlacement)
	if err != nil {
		klog.Errorf("Invalid -placement %q: use one of %v.", *flagPlacement, dataformats.PlacementStrings())
		os.Exit(1)
	}
	kernel, err := dataformats.NewVecPermute(dtype, src, dst)
	if err != nil {
		klog.Errorf("Cannot build the %s kernel: %+v", dataformats.OpVecPermute, err)
		os.Exit(1)
	}
	kernel.WithPlacement(placement)

	values := parseInts("vec", csv)
	var input *tensors.Tensor
	switch len(values) {
	case dataformats.NumAxes:
		input = tensorFromValues(dtype, values, dataformats.NumAxes)
	case 2 * dataformats.NumAxes:
		input = tensorFromValues(dtype, values, dataformats.NumAxes, 2)
	default:
		klog.Errorf("-vec takes %d values (a vector) or %d values (4 pairs), got %d.",
			dataformats.NumAxes, 2*dataformats.NumAxes, len(values))
		os.Exit(1)
	}
	output := must.M1(graph.ExecOnce(getBackend(), func(x *graph.Node) *graph.Node {
		return must.M1(kernel.Compile(x))
	}, input))

	fmt.Println(titleStyle.Render(fmt.Sprintf("VecPermute %s -> %s @%s", src, dst, kernel.Placement())))
	table := newPlainTable(false)
	table.Row("input "+string(src), input.GoStr())
	table.Row("output "+string(dst), output.GoStr())
	table.Row("shape", fmt.Sprintf("%s (%s)", output.Shape(), humanize.Bytes(uint64(output.Memory()))))
	fmt.Println(table.Render())
}
