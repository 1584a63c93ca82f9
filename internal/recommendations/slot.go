package recommendations

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
)

type Kind string

const (
	KindBreeding    Kind = "breeding"
	KindReplacement Kind = "replacement"
)

func (k Kind) IsValid() bool {
	return k == KindBreeding || k == KindReplacement
}

// Slot addresses one recommendation of the loaded result by kind and zero-based position.
type Slot struct {
	Kind  Kind
	Index int
}

// String renders the slot key, e.g. breeding-0.
func (s Slot) String() string {
	return fmt.Sprintf("%s-%d", s.Kind, s.Index)
}

// ParseSlot reads a slot key such as replacement-2.
func ParseSlot(raw string) (Slot, error) {
	raw = strings.TrimSpace(raw)
	sep := strings.LastIndex(raw, "-")
	if sep <= 0 {
		return Slot{}, invalidSlot(raw)
	}
	kind := Kind(raw[:sep])
	index, err := strconv.Atoi(raw[sep+1:])
	if err != nil || index < 0 || !kind.IsValid() {
		return Slot{}, invalidSlot(raw)
	}
	return Slot{Kind: kind, Index: index}, nil
}

func invalidSlot(raw string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid recommendation slot").
		WithDetails(map[string]any{"slot": raw})
}
