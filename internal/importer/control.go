package importer

import "context"

// Control is the user-facing surface an import reports to.
type Control interface {
	// Busy marks the triggering control as working and disables it. Each call
	// adds another busy indicator; callers do not deduplicate.
	Busy()
	// Dismiss closes the dialog the import was started from.
	Dismiss()
	// Refresh makes the newly submitted data visible.
	Refresh(ctx context.Context) error
	// Alert shows a blocking error message. The control stays disabled.
	Alert(message string)
}

// NopControl discards every notification.
type NopControl struct{}

func (NopControl) Busy() {}

func (NopControl) Dismiss() {}

func (NopControl) Refresh(ctx context.Context) error {
	return nil
}

func (NopControl) Alert(message string) {}
