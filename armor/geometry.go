// Package armor derives, from a filter state, the expected world
// positions of all plates mounted on a tracked robot, and resolves which
// plate an incoming observation best matches.
package armor

import (
	"math"

	"github.com/sentryturret/autoaim/motion"
	"github.com/sentryturret/autoaim/types"
	"gonum.org/v1/gonum/mat"
)

// Plate is one predicted armor-plate pose derived from a filter state.
type Plate struct {
	Index    int
	Position types.Position
	Yaw      float64
}

// Geometry is the two-radius, two-height geometry of a robot's plates:
// radius r / height za for even-indexed plates, AnotherR / za+DZ for
// odd-indexed plates on a 4-plate robot. 2- and 3-plate robots use a
// single radius/height for every plate (DZ and the distinction are
// ignored in that case).
type Geometry struct {
	ArmorsNum int
	AnotherR  float64
	DZ        float64
}

// Plates returns the ArmorsNum predicted plate poses for filter state x:
//
//	p_i = (xc - r_i*cos(yaw + i*2*pi/N), yc - r_i*sin(yaw + i*2*pi/N), z_i)
//
// with r_i/z_i alternating between the primary and alternate pair when
// ArmorsNum == 4.
func (g Geometry) Plates(x mat.Vector) []Plate {
	xc := x.AtVec(motion.IdxXC)
	yc := x.AtVec(motion.IdxYC)
	za := x.AtVec(motion.IdxZA)
	yaw := x.AtVec(motion.IdxYaw)
	r := x.AtVec(motion.IdxR)

	n := g.ArmorsNum
	plates := make([]Plate, n)
	for i := 0; i < n; i++ {
		ri, zi := r, za
		if n == 4 && i%2 == 1 {
			ri, zi = g.AnotherR, za+g.DZ
		}

		pyaw := normalizeYaw(yaw + float64(i)*2*math.Pi/float64(n))
		plates[i] = Plate{
			Index: i,
			Position: types.Position{
				X: xc - ri*math.Cos(pyaw),
				Y: yc - ri*math.Sin(pyaw),
				Z: zi,
			},
			Yaw: pyaw,
		}
	}
	return plates
}

// BestMatch returns the plate whose predicted position is closest
// (Euclidean) to pos.
func BestMatch(plates []Plate, pos types.Position) (Plate, float64) {
	best := plates[0]
	bestDist := distance(plates[0].Position, pos)
	for _, p := range plates[1:] {
		d := distance(p.Position, pos)
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist
}

func distance(a, b types.Position) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func normalizeYaw(yaw float64) float64 {
	for yaw > math.Pi {
		yaw -= 2 * math.Pi
	}
	for yaw <= -math.Pi {
		yaw += 2 * math.Pi
	}
	return yaw
}

// robotArmorsNum is the static numeric_id -> armor count lookup table.
// Unknown ids default to 4.
var robotArmorsNum = map[types.RobotID]int{
	"1":     4,
	"2":     4,
	"3":     4,
	"4":     4,
	"5":     4,
	"6":     4,
	"7":     4,
	"guard": 4,
	"base":  3,
	"outpost": 3,
}

// RobotTypeTable returns the number of armor plates mounted on the robot
// identified by id, defaulting to 4 for unknown ids.
func RobotTypeTable(id types.RobotID) int {
	if n, ok := robotArmorsNum[id]; ok {
		return n
	}
	return 4
}
