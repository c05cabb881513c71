// Package pose provides the rigid-body pose value shared by the transform
// graph, the scene and the data-source adapters.
//
// A Pose is a translation plus a unit-quaternion rotation. Used as the payload
// of an edge source -> target it is the pose of source expressed in target:
// applying it to a point given in source coordinates yields the same point in
// target coordinates. Poses chain right to left, so for edges a -> b and
// b -> c the pose of a in c is bc.Compose(ab).
package pose

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// minRotationNorm is the smallest quaternion norm accepted as a rotation.
// A zero quaternion is how producers signal an unset orientation.
const minRotationNorm = 1e-9

// Pose is a rigid-body transformation.
type Pose struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
}

// Identity returns the pose that maps every point onto itself.
func Identity() Pose {
	return Pose{Rotation: mgl64.QuatIdent()}
}

// New returns a pose with the given translation and rotation.
func New(translation mgl64.Vec3, rotation mgl64.Quat) Pose {
	return Pose{Translation: translation, Rotation: rotation}
}

// FromTranslation returns a pure translation.
func FromTranslation(x, y, z float64) Pose {
	return Pose{Translation: mgl64.Vec3{x, y, z}, Rotation: mgl64.QuatIdent()}
}

// FromAxisAngle returns a pose with translation t and a rotation of angle
// radians about axis.
func FromAxisAngle(t mgl64.Vec3, angle float64, axis mgl64.Vec3) Pose {
	return Pose{Translation: t, Rotation: mgl64.QuatRotate(angle, axis.Normalize())}
}

// HasValidTranslation reports whether every translation component is finite.
func (p Pose) HasValidTranslation() bool {
	for _, c := range p.Translation {
		if !finite(c) {
			return false
		}
	}
	return true
}

// HasValidRotation reports whether the rotation is finite and set.
func (p Pose) HasValidRotation() bool {
	q := p.Rotation
	if !finite(q.W) || !finite(q.V[0]) || !finite(q.V[1]) || !finite(q.V[2]) {
		return false
	}
	return q.Len() > minRotationNorm
}

// Valid reports whether both translation and rotation are well formed.
func (p Pose) Valid() bool {
	return p.HasValidTranslation() && p.HasValidRotation()
}

// Normalized returns p with a unit-length rotation.
func (p Pose) Normalized() Pose {
	return Pose{Translation: p.Translation, Rotation: p.Rotation.Normalize()}
}

// Compose returns the pose that applies inner first and then p.
func (p Pose) Compose(inner Pose) Pose {
	return Pose{
		Translation: p.Rotation.Rotate(inner.Translation).Add(p.Translation),
		Rotation:    p.Rotation.Mul(inner.Rotation).Normalize(),
	}
}

// Inverse returns the pose that undoes p.
func (p Pose) Inverse() Pose {
	inv := p.Rotation.Inverse().Normalize()
	return Pose{
		Translation: inv.Rotate(p.Translation).Mul(-1),
		Rotation:    inv,
	}
}

// Apply maps a point through p.
func (p Pose) Apply(v mgl64.Vec3) mgl64.Vec3 {
	return p.Rotation.Rotate(v).Add(p.Translation)
}

// Mat4 returns p as a homogeneous transformation matrix.
func (p Pose) Mat4() mgl64.Mat4 {
	t := p.Translation
	return mgl64.Translate3D(t[0], t[1], t[2]).Mul4(p.Rotation.Normalize().Mat4())
}

// ApproxEqual reports whether p and q describe the same transformation within
// eps. Quaternions q and -q are treated as the same rotation.
func (p Pose) ApproxEqual(q Pose, eps float64) bool {
	if !p.Translation.ApproxEqualThreshold(q.Translation, eps) {
		return false
	}
	dot := p.Rotation.Normalize().Dot(q.Rotation.Normalize())
	return math.Abs(dot) >= 1-eps
}

// String implements fmt.Stringer.
func (p Pose) String() string {
	t, q := p.Translation, p.Rotation
	return fmt.Sprintf("t=(%.3f, %.3f, %.3f) q=(w=%.3f, %.3f, %.3f, %.3f)",
		t[0], t[1], t[2], q.W, q.V[0], q.V[1], q.V[2])
}

// wirePose is the JSON form of a Pose.
type wirePose struct {
	Translation [3]float64 `json:"translation"`
	Rotation    wireQuat   `json:"rotation"`
}

type wireQuat struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MarshalJSON implements json.Marshaler.
func (p Pose) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePose{
		Translation: p.Translation,
		Rotation:    wireQuat{W: p.Rotation.W, X: p.Rotation.V[0], Y: p.Rotation.V[1], Z: p.Rotation.V[2]},
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var w wirePose
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.Translation = w.Translation
	p.Rotation = mgl64.Quat{W: w.Rotation.W, V: mgl64.Vec3{w.Rotation.X, w.Rotation.Y, w.Rotation.Z}}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
