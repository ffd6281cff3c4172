package camera

import (
	"encoding/json"
	"strconv"
)

// CameraID identifies a camera, or any camera.
//
// The zero value is camera 0. Use AnyCamera for the wildcard instead of a
// negative number; ID converts legacy negative ids at the boundary.
type CameraID struct {
	n   int
	any bool
}

// AnyCamera matches every camera.
var AnyCamera = CameraID{n: -1, any: true}

// ID returns the id of camera n. Negative n yields AnyCamera.
func ID(n int) CameraID {
	if n < 0 {
		return AnyCamera
	}
	return CameraID{n: n}
}

// IsAny reports whether c is the wildcard.
func (c CameraID) IsAny() bool {
	return c.any
}

// Int returns the camera number, or -1 for the wildcard.
func (c CameraID) Int() int {
	if c.any {
		return -1
	}
	return c.n
}

// Matches reports whether images from camera other should be handled by c.
// The wildcard on either side matches everything.
func (c CameraID) Matches(other CameraID) bool {
	if c.any || other.any {
		return true
	}
	return c.n == other.n
}

// String implements fmt.Stringer.
func (c CameraID) String() string {
	if c.any {
		return "any"
	}
	return strconv.Itoa(c.n)
}

// MarshalJSON encodes the id in its integer form.
func (c CameraID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Int())
}

// UnmarshalJSON accepts the integer form.
func (c *CameraID) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = ID(n)
	return nil
}
