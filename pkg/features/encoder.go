package features

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/synaptica-ai/dependability/pkg/vitals"
)

// UnknownCategoryError is returned when a posture was never seen while the
// encoder was fit.
type UnknownCategoryError struct {
	Value string
	Known []string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown posture category %q (known: %s)", e.Value, strings.Join(e.Known, ", "))
}

func IsUnknownCategory(err error) bool {
	var ue *UnknownCategoryError
	return errors.As(err, &ue)
}

// PostureEncoder is a frozen posture -> integer mapping. The index of a class
// in Classes is its code.
type PostureEncoder struct {
	classes []string
	index   map[vitals.Posture]int
}

// NewPostureEncoder builds an encoder from the class list recorded at
// training time.
func NewPostureEncoder(classes []string) (*PostureEncoder, error) {
	if len(classes) == 0 {
		return nil, errors.New("posture encoder has no classes")
	}
	index := make(map[vitals.Posture]int, len(classes))
	for i, c := range classes {
		if c == "" {
			return nil, fmt.Errorf("posture encoder class %d is empty", i)
		}
		if _, dup := index[vitals.Posture(c)]; dup {
			return nil, fmt.Errorf("posture encoder class %q repeated", c)
		}
		index[vitals.Posture(c)] = i
	}
	return &PostureEncoder{
		classes: append([]string(nil), classes...),
		index:   index,
	}, nil
}

// FitPostureEncoder collects the distinct postures and assigns codes in
// sorted order.
func FitPostureEncoder(values []vitals.Posture) (*PostureEncoder, error) {
	seen := make(map[string]struct{})
	for _, v := range values {
		seen[string(v)] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return NewPostureEncoder(classes)
}

func (e *PostureEncoder) Encode(p vitals.Posture) (int, error) {
	code, ok := e.index[p]
	if !ok {
		return 0, &UnknownCategoryError{Value: string(p), Known: e.Classes()}
	}
	return code, nil
}

func (e *PostureEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}
