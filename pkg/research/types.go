package research

// Config holds the sampling settings shared by every completion request.
// Per-variant settings (max tokens, result limit) live on the variant.
type Config struct {
	Model             string
	Temperature       float64
	TopP              float64
	TopK              int
	RepetitionPenalty float64
	Stop              []string
}

// DefaultStop are the stop sequences of the Llama 3.1 chat format.
var DefaultStop = []string{"<|eot_id|>", "<|eom_id|>"}

// DefaultConfig returns the sampling settings the assistant ships with.
func DefaultConfig() Config {
	return Config{
		Temperature:       0.7,
		TopP:              0.7,
		TopK:              50,
		RepetitionPenalty: 1,
		Stop:              append([]string(nil), DefaultStop...),
	}
}

// Cursor is shown after partial text while a response is streaming.
const Cursor = "▌"

// Update reports relay progress to the display.
type Update struct {
	// Text is the response accumulated so far, or the final text once Done.
	Text string
	// Delta is the fragment appended by this update.
	Delta string
	// Warning carries a non-fatal problem, such as a failed search.
	Warning string
	Done    bool
}

// Display returns Text as it should be rendered: with the streaming cursor
// until the response is done.
func (u Update) Display() string {
	if u.Done {
		return u.Text
	}
	return u.Text + Cursor
}
