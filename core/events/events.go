package events

// Event is the generic envelope surfaced to hosts. Typed event structs in
// this package convert themselves into an Event via their Event() method.
type Event struct {
	Type       string
	Attributes map[string]string
}
