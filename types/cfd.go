package types

import "strings"

// BCFLAG names the kind of a boundary marker. Markers are read from the mesh
// file by label and mapped through BCNameMap.
type BCFLAG uint8

const (
	BC_None BCFLAG = iota
	BC_EulerWall
	BC_NSWall
	BC_SymPlane
	BC_Far
	BC_Inlet
	BC_Outlet
	BC_NearField
	BC_Interface
	BC_NacelleInflow
	BC_NacelleExhaust
	BC_FWH
	BC_SendReceive
	BC_Periodic
)

var BCNameMap = map[string]BCFLAG{
	"wall":            BC_EulerWall,
	"euler_wall":      BC_EulerWall,
	"slip":            BC_EulerWall,
	"noslip":          BC_NSWall,
	"no_slip_wall":    BC_NSWall,
	"sym":             BC_SymPlane,
	"symmetry":        BC_SymPlane,
	"far":             BC_Far,
	"farfield":        BC_Far,
	"inlet":           BC_Inlet,
	"in":              BC_Inlet,
	"outlet":          BC_Outlet,
	"out":             BC_Outlet,
	"nearfield":       BC_NearField,
	"interface":       BC_Interface,
	"nacelle_inflow":  BC_NacelleInflow,
	"nacelle_exhaust": BC_NacelleExhaust,
	"fwh":             BC_FWH,
	"send_receive":    BC_SendReceive,
	"periodic":        BC_Periodic,
}

var bcNames = map[BCFLAG]string{
	BC_None:           "none",
	BC_EulerWall:      "euler_wall",
	BC_NSWall:         "no_slip_wall",
	BC_SymPlane:       "symmetry",
	BC_Far:            "farfield",
	BC_Inlet:          "inlet",
	BC_Outlet:         "outlet",
	BC_NearField:      "nearfield",
	BC_Interface:      "interface",
	BC_NacelleInflow:  "nacelle_inflow",
	BC_NacelleExhaust: "nacelle_exhaust",
	BC_FWH:            "fwh",
	BC_SendReceive:    "send_receive",
	BC_Periodic:       "periodic",
}

func (bf BCFLAG) String() string {
	if name, ok := bcNames[bf]; ok {
		return name
	}
	return "unknown"
}

// ParseBCName maps a mesh-file marker label onto a BCFLAG. Labels are matched
// case-insensitively and may carry a trailing qualifier after a dash, for
// example "periodic-1".
func ParseBCName(label string) (bf BCFLAG, ok bool) {
	name := strings.ToLower(strings.TrimSpace(label))
	if ind := strings.Index(name, "-"); ind > 0 {
		name = name[:ind]
	}
	bf, ok = BCNameMap[name]
	return
}
