package frame

// Task is a captured frame tagged with its sequence number.
type Task struct {
	Seq uint64
	// SendTime is a millisecond timestamp set by the dispatcher.
	SendTime int32
	Frame    Frame
}

// Result is the edge map of the task with the same sequence number.
type Result struct {
	Seq      uint64
	SendTime int32
	Edges    Frame
}
