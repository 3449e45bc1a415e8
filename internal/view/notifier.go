package view

// Notifier receives page update events from the coordinator. Rasters
// finish on background goroutines, so implementations must be safe to
// call from outside the UI loop; Fyne hosts typically forward to
// fyne.Do. Notification failures are the host's problem: the coordinator
// fires and forgets.
type Notifier interface {
	PageUpdated(page int)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(page int)

func (f NotifierFunc) PageUpdated(page int) { f(page) }

type nopNotifier struct{}

func (nopNotifier) PageUpdated(int) {}
