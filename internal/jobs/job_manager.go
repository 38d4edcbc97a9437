package jobs

import "fmt"

type Job interface {
	Start() error
	Stop()
}

// JobManager starts and stops the scheduled jobs as a group.
type JobManager struct {
	jobs    []Job
	started []Job
}

func NewJobManager(jobs ...Job) *JobManager {
	return &JobManager{jobs: jobs}
}

// StartAll starts every job. If one fails the ones already started are stopped.
func (jm *JobManager) StartAll() error {
	for i, job := range jm.jobs {
		if err := job.Start(); err != nil {
			jm.StopAll()
			return fmt.Errorf("start job %d: %w", i, err)
		}
		jm.started = append(jm.started, job)
	}
	return nil
}

func (jm *JobManager) StopAll() {
	for i := len(jm.started) - 1; i >= 0; i-- {
		jm.started[i].Stop()
	}
	jm.started = nil
}
