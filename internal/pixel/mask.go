package pixel

// Mask is the three-valued outcome of a masking predicate. The zero value is
// MaskNoData, so an unset mask never lets a pixel through.
type Mask uint8

const (
	MaskNoData Mask = iota
	MaskFalse
	MaskTrue
)

// MaskFrom converts a boolean predicate on a present value.
func MaskFrom(ok bool) Mask {
	if ok {
		return MaskTrue
	}
	return MaskFalse
}

// And combines two masks; no-data wins over false, false wins over true.
func (m Mask) And(o Mask) Mask {
	if m == MaskNoData || o == MaskNoData {
		return MaskNoData
	}
	if m == MaskFalse || o == MaskFalse {
		return MaskFalse
	}
	return MaskTrue
}

// Keep reports whether the pixel survives the mask.
func (m Mask) Keep() bool {
	return m == MaskTrue
}

func (m Mask) String() string {
	switch m {
	case MaskTrue:
		return "true"
	case MaskFalse:
		return "false"
	default:
		return "nodata"
	}
}
