package codegen

// Region identifies a structural slot in a generated kernel's source.
// The declaration order below is the assembly order: no matter when text is
// emitted into a region, the assembled source lays regions out in this order.
type Region uint8

const (
	// RegionHeader holds includes, typedefs and kernel-wide declarations.
	RegionHeader Region = iota
	// RegionExteriorSharedVariableBegin opens outer-scope shared variables.
	RegionExteriorSharedVariableBegin
	// RegionExteriorLoopBegin opens the outer loop.
	RegionExteriorLoopBegin
	// RegionInteriorSharedVariableBegin opens inner-scope shared variables.
	RegionInteriorSharedVariableBegin
	// RegionInteriorLoopBegin opens the inner loop.
	RegionInteriorLoopBegin
	// RegionBody is the main computation body.
	RegionBody
	// RegionInteriorLoopEnd closes the inner loop.
	RegionInteriorLoopEnd
	// RegionResidualBegin opens the residual (non-vectorized remainder) block.
	RegionResidualBegin
	// RegionResidualBody is the residual computation body.
	RegionResidualBody
	// RegionResidualEnd closes the residual block.
	RegionResidualEnd
	// RegionInteriorSharedVariableEnd closes inner-scope shared variables.
	RegionInteriorSharedVariableEnd
	// RegionExteriorLoopEnd closes the outer loop.
	RegionExteriorLoopEnd
	// RegionExteriorSharedVariableEnd closes outer-scope shared variables.
	RegionExteriorSharedVariableEnd
	// RegionTail holds trailing definitions after the kernel function.
	RegionTail

	numRegions
)

var regionNames = [numRegions]string{
	RegionHeader:                      "header",
	RegionExteriorSharedVariableBegin: "exterior_shared_variable_begin",
	RegionExteriorLoopBegin:           "exterior_loop_begin",
	RegionInteriorSharedVariableBegin: "interior_shared_variable_begin",
	RegionInteriorLoopBegin:           "interior_loop_begin",
	RegionBody:                        "body",
	RegionInteriorLoopEnd:             "interior_loop_end",
	RegionResidualBegin:               "residual_begin",
	RegionResidualBody:                "residual_body",
	RegionResidualEnd:                 "residual_end",
	RegionInteriorSharedVariableEnd:   "interior_shared_variable_end",
	RegionExteriorLoopEnd:             "exterior_loop_end",
	RegionExteriorSharedVariableEnd:   "exterior_shared_variable_end",
	RegionTail:                        "tail",
}

func (r Region) String() string {
	if r >= numRegions {
		return "unknown"
	}
	return regionNames[r]
}

// Regions returns every region in assembly order.
func Regions() []Region {
	out := make([]Region, 0, numRegions)
	for r := Region(0); r < numRegions; r++ {
		out = append(out, r)
	}
	return out
}
