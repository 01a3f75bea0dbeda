package model

import "time"

// Lane is one of the three ordered stages a job occupies.
type Lane string

const (
	LanePending   Lane = "pending"
	LaneActive    Lane = "active"
	LaneCompleted Lane = "completed"
)

// Lanes lists every lane in progression order.
var Lanes = []Lane{LanePending, LaneActive, LaneCompleted}

// String returns the string representation of the lane.
func (l Lane) String() string {
	return string(l)
}

// IsValid checks whether the lane is a known value.
func (l Lane) IsValid() bool {
	switch l {
	case LanePending, LaneActive, LaneCompleted:
		return true
	}
	return false
}

// Next returns the lane a job moves into from l, and false when l is terminal.
// Progression is strictly pending -> active -> completed.
func (l Lane) Next() (Lane, bool) {
	switch l {
	case LanePending:
		return LaneActive, true
	case LaneActive:
		return LaneCompleted, true
	}
	return "", false
}

// ParseLane converts s into a Lane, accepting the few aliases the mobile
// client used for its tabs.
func ParseLane(s string) (Lane, bool) {
	switch s {
	case "pending", "offered", "requests":
		return LanePending, true
	case "active", "accepted", "upcoming":
		return LaneActive, true
	case "completed", "done", "history":
		return LaneCompleted, true
	}
	return "", false
}

// Job is a single unit of field work moving through the lanes.
type Job struct {
	ID           string     `json:"id" toml:"id" yaml:"id"`
	CustomerName string     `json:"customer_name" toml:"customer_name" yaml:"customer_name"`
	JobType      string     `json:"job_type" toml:"job_type" yaml:"job_type"`
	ScheduledAt  time.Time  `json:"scheduled_at" toml:"scheduled_at" yaml:"scheduled_at"`
	Location     string     `json:"location,omitempty" toml:"location" yaml:"location"`
	Notes        string     `json:"notes,omitempty" toml:"notes" yaml:"notes"`
	CreatedAt    time.Time  `json:"created_at" toml:"-" yaml:"-"`
	ClaimedBy    string     `json:"claimed_by,omitempty" toml:"-" yaml:"-"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty" toml:"-" yaml:"-"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" toml:"-" yaml:"-"`
}

// Clone returns a deep copy of j so callers never share pointers with a store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.ClaimedAt != nil {
		t := *j.ClaimedAt
		c.ClaimedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// LaneJob pairs a job with the lane it currently sits in.
type LaneJob struct {
	Lane Lane `json:"lane"`
	Job  *Job `json:"job"`
}

// Snapshot is a consistent view of all three lanes taken at one instant.
type Snapshot struct {
	TakenAt   time.Time `json:"taken_at"`
	Pending   []*Job    `json:"pending"`
	Active    []*Job    `json:"active"`
	Completed []*Job    `json:"completed"`
}

// Lane returns the jobs of the given lane in the snapshot.
func (s *Snapshot) Lane(l Lane) []*Job {
	switch l {
	case LanePending:
		return s.Pending
	case LaneActive:
		return s.Active
	case LaneCompleted:
		return s.Completed
	}
	return nil
}

// Len returns the total number of jobs across all lanes.
func (s *Snapshot) Len() int {
	return len(s.Pending) + len(s.Active) + len(s.Completed)
}
