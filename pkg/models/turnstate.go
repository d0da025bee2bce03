package models

// NextStep names the workflow edge a node selects for the executor's
// dispatch loop. It is the flattened stand-in for the conditional-edge
// graph the source system builds at request time.
type NextStep string

const (
	StepToolCall   NextStep = "tool_call"
	StepRespond    NextStep = "respond"
	StepReactThink NextStep = "react_think"
	StepCompleted  NextStep = "completed"
)

// ReActMode names the state ReActState is currently in.
type ReActMode string

const (
	ReActThink    ReActMode = "think"
	ReActAct      ReActMode = "act"
	ReActObserve  ReActMode = "observe"
	ReActFinalize ReActMode = "finalize"
)

// ReActState groups the fields that only matter while the ReAct
// controller is driving a turn. They reset per turn and are colocated on
// TurnState because the finalizer needs both these and the accumulated
// tool calls, but grouping them keeps that reset boundary obvious.
type ReActState struct {
	Mode                ReActMode
	Iteration           int
	MaxIterations       int
	CurrentStep         string
	Thought             string
	Action              string
	Observation         string
	FinalAnswer         string
	ShouldContinue      bool
	ConsecutiveFailures int
	MaxFailures         int
	RemainingTasks       []string
}

// TurnState is the per-request working set threaded through workflow
// nodes. It is owned exclusively by one Executor invocation; nodes mutate
// it in place rather than copying it between steps.
type TurnState struct {
	CurrentMessage string
	SessionID      string

	Messages  []*Message
	Intent    *Intent
	ToolCalls []ToolCallRecord

	Response string
	Success  bool
	Error    error

	StepCount int
	NextStep  NextStep

	React ReActState
}
