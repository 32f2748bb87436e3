// Package ui isolates all page-surface state behind opaque handles so
// the payment state machines never touch rendering directly. Adapters
// mutate a ViewState that the embedding page renders from.
package ui

import "sync"

// Adapter is the surface the engine reports progress through.
type Adapter interface {
	// Pending marks a submission as in flight. Must be called before
	// any slow asynchronous step starts.
	Pending()
	// Ready clears pending state. Every flow exit path ends here.
	Ready()
	// ShowError surfaces a recoverable fault and returns to ready.
	ShowError(msg string)
}

// ViewState is the render model for one checkout surface.
type ViewState struct {
	mu             sync.Mutex
	submitDisabled bool
	loadingVisible bool
	contentVisible bool
	errorText      string
	fieldErrorText string
}

// NewViewState returns a ready surface with the content panel visible.
func NewViewState() *ViewState {
	return &ViewState{contentVisible: true}
}

func (v *ViewState) SubmitDisabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.submitDisabled
}

func (v *ViewState) LoadingVisible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadingVisible
}

func (v *ViewState) ContentVisible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.contentVisible
}

func (v *ViewState) ErrorText() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errorText
}

// FieldErrorText is the live inline validation message, independent of
// the submission state machine.
func (v *ViewState) FieldErrorText() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fieldErrorText
}

// SetFieldError replaces the inline validation message. An empty message
// clears it.
func (v *ViewState) SetFieldError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fieldErrorText = msg
}

// Pending reports whether a submission is currently in flight.
func (v *ViewState) Pending() bool {
	return v.SubmitDisabled()
}

// PageAdapter is the full-page variant: it disables the submit control
// and swaps the content panel for a loading panel.
type PageAdapter struct {
	View *ViewState
}

func (a PageAdapter) Pending() {
	v := a.View
	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitDisabled = true
	v.loadingVisible = true
	v.contentVisible = false
	v.errorText = ""
}

func (a PageAdapter) Ready() {
	v := a.View
	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitDisabled = false
	v.loadingVisible = false
	v.contentVisible = true
}

func (a PageAdapter) ShowError(msg string) {
	a.Ready()
	v := a.View
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errorText = msg
}

// InlineAdapter only injects an alert box and toggles the submit
// control; it never touches the loading or content panels.
type InlineAdapter struct {
	View *ViewState
}

func (a InlineAdapter) Pending() {
	v := a.View
	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitDisabled = true
	v.errorText = ""
}

func (a InlineAdapter) Ready() {
	v := a.View
	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitDisabled = false
}

func (a InlineAdapter) ShowError(msg string) {
	v := a.View
	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitDisabled = false
	v.errorText = msg
}
