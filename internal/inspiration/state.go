package inspiration

// Phase names one state of the inspiration machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseCapturing Phase = "capturing"
	PhaseThinking  Phase = "thinking"
	PhaseReasoning Phase = "reasoning"
	PhaseStreaming Phase = "streaming"
	PhaseFinished  Phase = "finished"
	PhaseError     Phase = "error"
)

// State is one observable snapshot of the machine. Exactly one instance
// is live per orchestrator; transitions within a run are monotonic and
// only an explicit cancel or a new trigger resets to idle.
type State struct {
	Phase Phase `json:"phase"`
	// ReasoningText accumulates during the thinking phase and is
	// discarded the moment visible content starts.
	ReasoningText string `json:"reasoning_text,omitempty"`
	// Text accumulates visible content while streaming and holds the
	// final text once finished.
	Text string `json:"text,omitempty"`
	// LatencyMS is the first-byte latency: trigger to first chunk of
	// any kind. Set once finished.
	LatencyMS int64 `json:"latency_ms,omitempty"`
	// Message carries the failure description in the error phase.
	Message string `json:"message,omitempty"`
	// Persona that produced this run.
	Persona string `json:"persona,omitempty"`
}
