package stabilizer

// Description is the display text for a known gesture
type Description struct {
	Icon string `json:"icon"`
	Text string `json:"text"`
}

var catalog = map[string]Description{
	"HELLO": {Icon: "✋", Text: "Open hand with waving motion detected"},
	"YES":   {Icon: "👍", Text: "Up-down nod detected"},
	"NO":    {Icon: "👎", Text: "Wrist twist detected"},
	"STOP":  {Icon: "🖐", Text: "Hand held still detected"},
}

var (
	unknownGesture = Description{Icon: "🖐", Text: "Gesture detected"}
	waitingGesture = Description{Icon: "⏳", Text: "Perform a gesture to begin"}
)

// Describe returns display text for gesture
func Describe(gesture string) Description {
	if IsWaiting(gesture) {
		return waitingGesture
	}
	if d, ok := catalog[gesture]; ok {
		return d
	}
	return unknownGesture
}
