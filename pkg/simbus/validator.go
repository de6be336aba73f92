package simbus

import (
	"errors"

	"github.com/swarmlab/simbus/pkg/simbus/event"
)

// Validator gates events before they enter the log. Validators run
// synchronously in registration order; the first rejection aborts the
// publish with a *ValidationError.
type Validator struct {
	// Name identifies the validator in errors and logs.
	Name string

	// Kinds scopes the validator to specific kinds. Empty means all.
	Kinds []event.Kind

	// Validate returns nil to accept the event or an error naming the
	// reason for rejection.
	Validate func(evt event.Event) error
}

func (v Validator) applies(k event.Kind) bool {
	if len(v.Kinds) == 0 {
		return true
	}
	for _, vk := range v.Kinds {
		if vk == k {
			return true
		}
	}
	return false
}

// AddValidator appends a validator to the chain. Validators are never
// removed.
func (b *Bus) AddValidator(v Validator) {
	if v.Validate == nil {
		return
	}
	if v.Name == "" {
		v.Name = "anonymous"
	}
	b.chainMu.Lock()
	b.validators = append(b.validators, v)
	b.chainMu.Unlock()
}

// runValidators returns the first rejection, or nil when every applicable
// validator accepts the event.
func (b *Bus) runValidators(evt event.Event) *ValidationError {
	b.chainMu.RLock()
	validators := b.validators
	b.chainMu.RUnlock()

	for _, v := range validators {
		if !v.applies(evt.Kind) {
			continue
		}
		if err := v.Validate(evt); err != nil {
			return &ValidationError{
				EventID:   evt.ID,
				Validator: v.Name,
				Reason:    err.Error(),
				Err:       err,
			}
		}
	}
	return nil
}

// requiredFieldsValidator is installed on every bus. It enforces the
// invariant that ID, Kind, CreatedAt, and SourceID are always present and
// that the kind belongs to the closed enumeration.
func requiredFieldsValidator() Validator {
	return Validator{
		Name: "required-fields",
		Validate: func(evt event.Event) error {
			switch {
			case evt.ID == "":
				return errors.New("missing id")
			case evt.Kind == "":
				return errors.New("missing kind")
			case !evt.Kind.Valid():
				return errors.New("unknown kind " + string(evt.Kind))
			case evt.CreatedAt.IsZero():
				return errors.New("missing created_at")
			case evt.SourceID == "":
				return errors.New("missing source_id")
			}
			return nil
		},
	}
}
