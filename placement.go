package dataformats

// Placement selects among equivalent execution targets for a kernel: it tells the
// hosting compiler where to schedule the emitted fragment. It never changes output
// values.
type Placement int

//go:generate go tool enumer -type=Placement -trimprefix=Placement -output=gen_placement_enumer.go placement.go

const (
	// PlacementDefault schedules the fragment wherever the rest of the graph runs.
	PlacementDefault Placement = iota

	// PlacementHost schedules the fragment on a lightweight host-side execution
	// path, on backends that distinguish one.
	PlacementHost
)
