package simbus

// Event identifies which arbitration case drove the line state on a given
// cycle. It is reported for observation and logging only; arbitration
// never feeds back on it.
type Event uint8

const (
	EventIdle       Event = iota // bus idle (J) or ordinary packet transmission
	EventHostReset               // host driving SE0 (bus reset)
	EventDevChirpK               // device chirping K
	EventDevChirpJ               // device chirping J
	EventHostChirpK              // host chirping K
	EventHostChirpJ              // host chirping J
)

var eventNames = [...]string{
	EventIdle:       "IDLE",
	EventHostReset:  "HOST_RESET",
	EventDevChirpK:  "DEV_CHIRP_K",
	EventDevChirpJ:  "DEV_CHIRP_J",
	EventHostChirpK: "HOST_CHIRP_K",
	EventHostChirpJ: "HOST_CHIRP_J",
}

// String returns the event name.
func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "UNKNOWN"
}
