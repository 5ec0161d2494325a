package filter

import "fmt"

// Kind is the visual treatment applied to an image
type Kind int

const (
	// None leaves the image untouched
	None Kind = iota
	// Mustache draws a mustache and monocle overlay
	Mustache
	// Neon boosts every color channel
	Neon
	// Pixelate turns the image into 8x8 blocks
	Pixelate
	// Flare washes out the colors and adds a lens flare overlay
	Flare
)

var kindNames = map[Kind]string{
	None:     "none",
	Mustache: "mustache",
	Neon:     "neon",
	Pixelate: "pixel",
	Flare:    "flare",
}

// Kinds returns all filter kinds in display order
func Kinds() []Kind {
	return []Kind{None, Mustache, Neon, Pixelate, Flare}
}

// String returns the wire name of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses the wire name of a filter kind
func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}

	return None, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = kind
	return nil
}
