package app

import "time"

// maxCatchUp bounds how many missed runs a periodic task replays in one Advance.
const maxCatchUp = 8

// Task is a cancellable one-shot or periodic callback owned by a Scheduler.
type Task struct {
	name      string
	interval  time.Duration
	next      time.Time
	periodic  bool
	cancelled bool
	fn        func(now time.Time)
}

// Name returns the task label used in logs.
func (t *Task) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Cancel stops the task. Safe to call any number of times and on nil.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.cancelled = true
}

// Active reports whether the task will still run.
func (t *Task) Active() bool {
	return t != nil && !t.cancelled
}

// Scheduler runs tasks when Advance is called with the current time. It is driven
// by the match loop and is not safe for concurrent use.
type Scheduler struct {
	tasks []*Task
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Every schedules fn to run each interval, first at now+interval.
func (s *Scheduler) Every(name string, now time.Time, interval time.Duration, fn func(now time.Time)) *Task {
	if interval <= 0 {
		interval = time.Second
	}
	t := &Task{name: name, interval: interval, next: now.Add(interval), periodic: true, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// After schedules fn to run once at now+delay.
func (s *Scheduler) After(name string, now time.Time, delay time.Duration, fn func(now time.Time)) *Task {
	t := &Task{name: name, next: now.Add(delay), fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance runs every due task. Tasks scheduled by callbacks wait for the next
// Advance; tasks cancelled by callbacks are skipped.
func (s *Scheduler) Advance(now time.Time) int {
	ran := 0
	snapshot := append([]*Task(nil), s.tasks...)
	for _, t := range snapshot {
		for runs := 0; t.Active() && !now.Before(t.next); runs++ {
			if !t.periodic {
				t.cancelled = true
				t.fn(now)
				ran++
				break
			}
			if runs == maxCatchUp {
				t.next = now.Add(t.interval)
				break
			}
			at := t.next
			t.next = t.next.Add(t.interval)
			t.fn(at)
			ran++
		}
	}
	s.compact()
	return ran
}

// CancelAll cancels every task.
func (s *Scheduler) CancelAll() {
	for _, t := range s.tasks {
		t.Cancel()
	}
	s.tasks = nil
}

// Len returns the number of live tasks.
func (s *Scheduler) Len() int {
	n := 0
	for _, t := range s.tasks {
		if t.Active() {
			n++
		}
	}
	return n
}

func (s *Scheduler) compact() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if t.Active() {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}
