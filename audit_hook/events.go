package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionJobClaimed      = "job.claimed"
	ActionJobCompleted    = "job.completed"
	ActionJobRetrying     = "job.retrying"
	ActionJobDeadLettered = "job.dead_lettered"
	ActionJobCancelled    = "job.cancelled"
)

// CategoryJob groups every job action.
const CategoryJob = "worker.job"

// ResourceJob is the Resource field of job audit events.
const ResourceJob = "job"

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobClaimed,
		ActionJobCompleted,
		ActionJobRetrying,
		ActionJobDeadLettered,
		ActionJobCancelled,
	}
}
