package reconcile

import (
	"fmt"

	"github.com/dori/phitodo/internal/model"
)

// FetchError reports a failed category. Nothing from that category is
// applied in the cycle.
type FetchError struct {
	Category Category
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Category, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ItemError reports one item that could not be applied. The rest of the
// cycle continues.
type ItemError struct {
	Source model.Source
	Key    string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("apply %s %s: %v", e.Source, e.Key, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
