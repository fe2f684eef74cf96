package broadcaster

// Callback receives decoded messages for a subscribed channel.
// Both plain functions (through CallbackFunc) and objects with a Call
// method can be subscribed.
type Callback interface {
	Call(message any) error
}

// CallbackFunc adapts an ordinary function to the Callback interface.
type CallbackFunc func(message any) error

// Call calls f(message).
func (f CallbackFunc) Call(message any) error {
	return f(message)
}
