package landsat

// Quality is the per-observation cloud/shadow/snow flag.
type Quality uint8

const (
	QualityFill Quality = iota
	QualityClear
	QualityShadow
	QualitySnow
	QualityCloud
)

// QualityFromCFMask maps a CFMask code. Clear land (0) and clear water (1)
// are both clear-sky observations.
func QualityFromCFMask(code int) Quality {
	switch code {
	case 0, 1:
		return QualityClear
	case 2:
		return QualityShadow
	case 3:
		return QualitySnow
	case 4:
		return QualityCloud
	default:
		return QualityFill
	}
}

func (q Quality) String() string {
	switch q {
	case QualityClear:
		return "clear"
	case QualityShadow:
		return "shadow"
	case QualitySnow:
		return "snow"
	case QualityCloud:
		return "cloud"
	default:
		return "fill"
	}
}
