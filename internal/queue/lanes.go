package queue

import "caretaker.app/relay/internal/model"

const laneKeyPrefix = "agent:queue:"

// LaneKey returns the Redis list holding items of the given priority.
func LaneKey(p model.Priority) string {
	return laneKeyPrefix + string(p)
}

// Item is one raw agent event popped from a lane.
type Item struct {
	Priority model.Priority
	Payload  string
}
