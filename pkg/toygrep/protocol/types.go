package protocol

import (
	"pkg.jsn.cam/toygrep/pkg/toygrep"
)

// Kind identifies the type of a message exchanged between master and workers
type Kind string

const (
	KindTask      Kind = "task"
	KindResult    Kind = "result"
	KindTerminate Kind = "terminate"
	KindHello     Kind = "hello"
	KindWelcome   Kind = "welcome"
)

// Op names the operation a task asks a worker to run
type Op string

const (
	OpSearch    Op = "search"
	OpWordCount Op = "wordcount"
)

// MasterRank is the rank of the master in every topology
const MasterRank = 0

// Payload is the operation plus its arguments. It is never modified after
// the task carrying it is created.
type Payload struct {
	Op      Op            `json:"op"`
	Text    string        `json:"text"`
	Pattern string        `json:"pattern,omitempty"`
	Limit   int           `json:"limit,omitempty"`
	Slice   toygrep.Slice `json:"slice"` // position of Text in the corpus
}

// Task is sent by the master to an idle worker
type Task struct {
	ID      string  `json:"id"`
	Payload Payload `json:"payload"`
}

// Result is sent by a worker after running a task. Error is set when the
// operation failed; Matches and Counts are then empty.
type Result struct {
	TaskID   string          `json:"task_id"`
	WorkerID int             `json:"worker_id"`
	Op       Op              `json:"op"`
	Matches  []toygrep.Match `json:"matches,omitempty"`
	Counts   map[string]int  `json:"counts,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// OK reports whether the operation succeeded.
func (r *Result) OK() bool { return r.Error == "" }

// Hello is the first frame a worker sends after dialing the master
type Hello struct {
	NodeID  string `json:"node_id"`
	Version string `json:"version"`
	Codec   string `json:"codec"` // codec used for every frame after the handshake
}

// Welcome answers a Hello. Rank is zero and Error set when the worker is
// rejected.
type Welcome struct {
	Rank  int    `json:"rank"`
	Size  int    `json:"size"`
	Error string `json:"error,omitempty"`
}

// Message is the envelope for every frame. Exactly one of the pointer fields
// matching Kind is set; Terminate carries no body.
type Message struct {
	Kind    Kind     `json:"kind"`
	Source  int      `json:"source"`
	Task    *Task    `json:"task,omitempty"`
	Result  *Result  `json:"result,omitempty"`
	Hello   *Hello   `json:"hello,omitempty"`
	Welcome *Welcome `json:"welcome,omitempty"`
}

// NewTaskMessage wraps a task for delivery
func NewTaskMessage(task Task) Message {
	return Message{Kind: KindTask, Source: MasterRank, Task: &task}
}

// NewResultMessage wraps a result for delivery
func NewResultMessage(result Result) Message {
	return Message{Kind: KindResult, Source: result.WorkerID, Result: &result}
}

// NewTerminateMessage builds the signal that ends a worker's run loop
func NewTerminateMessage() Message {
	return Message{Kind: KindTerminate, Source: MasterRank}
}
