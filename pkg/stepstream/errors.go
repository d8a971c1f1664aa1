package stepstream

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTagName   = errors.New("stepstream: invalid tag name")
	ErrInvalidStepLabel = errors.New("stepstream: invalid step label")
)

// TagConfigError indicates an invalid entry in a tag mapping.
// Construction fails atomically on the first invalid entry; no
// partially built registry or parser is observable.
type TagConfigError struct {
	Tag   string // the offending tag name
	Label string // the step label the tag maps to
	Err   error  // sentinel cause
}

func (e *TagConfigError) Error() string {
	if errors.Is(e.Err, ErrInvalidStepLabel) {
		return fmt.Sprintf("%v: tag %q maps to empty step label", e.Err, e.Tag)
	}

	return fmt.Sprintf(
		"%v: %q must match %s",
		e.Err,
		e.Tag,
		tagNamePattern,
	)
}

func (e *TagConfigError) Unwrap() error {
	return e.Err
}
