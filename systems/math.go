package systems

import "math"

// Clamp clamps v to [minVal, maxVal].
func Clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// NormalizeAngle wraps an angle to [-Pi, Pi].
func NormalizeAngle(angle float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0
	}
	angle = math.Mod(angle, 2*math.Pi)
	if angle > math.Pi {
		angle -= 2 * math.Pi
	} else if angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// RelativeBearing returns the angle from heading to target, wrapped to [-Pi, Pi].
func RelativeBearing(heading, target float64) float64 {
	return NormalizeAngle(target - heading)
}

// Heading returns the unit vector for an angle.
func Heading(angle float64) (x, y float64) {
	return math.Cos(angle), math.Sin(angle)
}
