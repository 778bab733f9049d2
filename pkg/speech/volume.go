package speech

import "fmt"

// MaxVolume is the top of the volume slider
const MaxVolume = 100

// Volume is a slider level from 0 to 100
type Volume int

// Icon is the volume indicator level shown next to the slider
type Icon int

// NewVolume clamps v to the slider range
func NewVolume(v int) Volume {
	if v < 0 {
		return 0
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return Volume(v)
}

// Gain converts the slider level to the [0,1] utterance volume
func (v Volume) Gain() float64 {
	return float64(NewVolume(int(v))) / MaxVolume
}

// Icon returns 3 for 67 and up, 2 for 34 and up, 1 for anything audible and 0 when muted
func (v Volume) Icon() Icon {
	switch {
	case v >= 67:
		return 3
	case v >= 34:
		return 2
	case v >= 1:
		return 1
	default:
		return 0
	}
}

// Path is the icon asset for the level
func (i Icon) Path() string {
	return fmt.Sprintf("icons/volume-level-%d.svg", int(i))
}
