package trainvisualizer

const (
	EasingLinear    = "linear"
	EasingEaseIn    = "easeIn"
	EasingEaseOut   = "easeOut"
	EasingEaseInOut = "easeInOut"
)

// EasingFunc remaps animation progress. Every easing is monotonic with f(0)=0 and f(1)=1.
type EasingFunc func(progress float64) float64

func Linear(progress float64) float64 {
	return progress
}

func EaseIn(progress float64) float64 {
	return progress * progress
}

func EaseOut(progress float64) float64 {
	return progress * (2 - progress)
}

func EaseInOut(progress float64) float64 {
	if progress < 0.5 {
		return 2 * progress * progress
	}
	return -1 + (4-2*progress)*progress
}

// GetEasing falls back to linear for unknown names
func GetEasing(name string) EasingFunc {
	switch name {
	case EasingEaseIn:
		return EaseIn
	case EasingEaseOut:
		return EaseOut
	case EasingEaseInOut:
		return EaseInOut
	default:
		return Linear
	}
}
