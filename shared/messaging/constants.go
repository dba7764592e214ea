package messaging

// Queue names.
const (
	AvatarTaskQueueName   = "avatar_generation_tasks"
	AvatarResultQueueName = "avatar_generation_results"
)

// Dead-lettering for the task queue. Publisher and consumer must declare the
// queue with the same arguments.
const (
	AvatarTaskDLXName       = "avatar_generation_tasks_dlx"
	AvatarTaskDLQName       = "avatar_generation_tasks_dlq"
	AvatarTaskDLQRoutingKey = "dlq"
)
