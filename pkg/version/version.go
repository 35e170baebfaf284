package version

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
)

// MaxNameLength is the longest version name that can be tracked.
const MaxNameLength = 190

var pattern = regexp.MustCompile(`^v(\d+)\.(\d\d)(.*)$`)

type (
	// Local is a version parsed from a workspace directory name.
	Local struct {
		Major int
		Minor int
		Label string
	}

	// FormatError is returned when a name cannot be used as a version.
	FormatError struct {
		Name   string
		Reason string
	}
)

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Name, e.Reason)
}

// Parse parses a version directory name such as v1.05 or v2.00-beta.
func Parse(name string) (Local, error) {
	if len(name) > MaxNameLength {
		return Local{}, &FormatError{Name: name, Reason: fmt.Sprintf("longer than %d characters", MaxNameLength)}
	}

	m := pattern.FindStringSubmatch(name)
	if m == nil {
		return Local{}, &FormatError{Name: name, Reason: "expected v<major>.<minor> with a two digit minor"}
	}

	major, err := strconv.Atoi(m[1])
	if err != nil {
		return Local{}, &FormatError{Name: name, Reason: "major component out of range"}
	}

	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return Local{}, &FormatError{Name: name, Reason: "minor component out of range"}
	}

	return Local{Major: major, Minor: minor, Label: m[3]}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(name string) Local {
	v, err := Parse(name)
	if err != nil {
		panic(err)
	}

	return v
}

// IsVersionName reports whether name starts like a version directory (a
// lowercase v followed by a digit), regardless of whether it parses.
func IsVersionName(name string) bool {
	return len(name) > 1 && name[0] == 'v' && name[1] >= '0' && name[1] <= '9'
}

// String renders the canonical directory name.
func (v Local) String() string {
	return fmt.Sprintf("v%d.%02d%s", v.Major, v.Minor, v.Label)
}

// Compare returns -1, 0 or 1 comparing a and b by major, minor, then label.
func Compare(a, b Local) int {
	switch {
	case a.Major != b.Major:
		return cmpInt(a.Major, b.Major)
	case a.Minor != b.Minor:
		return cmpInt(a.Minor, b.Minor)
	case a.Label < b.Label:
		return -1
	case a.Label > b.Label:
		return 1
	default:
		return 0
	}
}

// Less reports whether v sorts before other.
func (v Local) Less(other Local) bool {
	return Compare(v, other) < 0
}

// Sort orders versions ascending in place.
func Sort(versions []Local) {
	slices.SortFunc(versions, Compare)
}

// Latest returns the highest version in the list.
func Latest(versions []Local) (Local, bool) {
	if len(versions) == 0 {
		return Local{}, false
	}

	return slices.MaxFunc(versions, Compare), true
}

// IncrementMajor returns the version following the highest existing major,
// with a zero minor. An empty list starts from v0.00.
func IncrementMajor(existing []Local, label string) (Local, error) {
	latest, _ := Latest(existing)
	next := Local{Major: latest.Major + 1, Label: label}
	if next.Major < latest.Major {
		return Local{}, &FormatError{Name: latest.String(), Reason: "major component out of range"}
	}

	return validate(next)
}

// IncrementMinor returns the version following the highest existing minor
// within the highest major. An empty list starts from v0.00.
func IncrementMinor(existing []Local, label string) (Local, error) {
	latest, _ := Latest(existing)
	next := Local{Major: latest.Major, Minor: latest.Minor + 1, Label: label}
	if next.Minor > 99 {
		return Local{}, &FormatError{
			Name:   next.String(),
			Reason: "minor component cannot exceed 99, increment the major version instead",
		}
	}

	return validate(next)
}

func validate(v Local) (Local, error) {
	// round trip to catch labels that would not parse back
	parsed, err := Parse(v.String())
	if err != nil {
		return Local{}, err
	}

	return parsed, nil
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}

	return 1
}
