package coord

// ProjectionVariant is the sum type the grid processor dispatches on. Only
// the fixed set named here is supported; on-the-fly reprojection to an
// arbitrary CRS is out of scope.
type ProjectionVariant int

const (
	Geographic ProjectionVariant = iota
	WebMercator
	LambertConformal
	Geostationary
)

func (v ProjectionVariant) String() string {
	switch v {
	case Geographic:
		return "geographic"
	case WebMercator:
		return "web-mercator"
	case LambertConformal:
		return "lambert-conformal"
	case Geostationary:
		return "geostationary"
	default:
		return "unknown"
	}
}

// ParseProjectionVariant parses the catalog's string form of a projection
// variant, as stored on DatasetRecord.
func ParseProjectionVariant(s string) (ProjectionVariant, bool) {
	switch s {
	case "geographic":
		return Geographic, true
	case "web-mercator":
		return WebMercator, true
	case "lambert-conformal":
		return LambertConformal, true
	case "geostationary":
		return Geostationary, true
	default:
		return 0, false
	}
}

// RequiresFullGrid reports whether this projection variant forces a
// full-level read rather than a bounded chunk rectangle: true for the two
// non-linear projections, false for the linear ones. explicitOverride, when
// non-nil, takes precedence over the variant-derived default, per dataset
// metadata that explicitly flags a grid as requiring a full read.
func (v ProjectionVariant) RequiresFullGrid(explicitOverride *bool) bool {
	if explicitOverride != nil {
		return *explicitOverride
	}
	switch v {
	case LambertConformal, Geostationary:
		return true
	default:
		return false
	}
}
