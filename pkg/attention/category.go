// Package attention classifies gaze deviation from a calibrated baseline and
// apportions session time across attentional categories.
package attention

import "fmt"

// Category is one of the mutually exclusive attentional states.
type Category int

const (
	Attention Category = iota
	Left
	Right
	Up
	Down
	WindowSwitch

	// NumCategories is the size of every duration table.
	NumCategories = int(WindowSwitch) + 1
)

// Categories lists every category in report order.
var Categories = [NumCategories]Category{Attention, Left, Right, Up, Down, WindowSwitch}

var categoryNames = [NumCategories]string{
	Attention:    "attention",
	Left:         "left",
	Right:        "right",
	Up:           "up",
	Down:         "down",
	WindowSwitch: "window_switch",
}

// String returns the lower-case name used in logs and JSON.
func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is a member of the closed enumeration.
func (c Category) Valid() bool {
	return c >= Attention && c <= WindowSwitch
}

// MarshalText encodes the category by name.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: unknown category %d", ErrInvalidInput, int(c))
	}
	return []byte(categoryNames[c]), nil
}

// ParseCategory resolves a category name.
func ParseCategory(name string) (Category, error) {
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return Attention, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, name)
}
