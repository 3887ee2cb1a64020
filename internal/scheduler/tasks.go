package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskExpireQuotes flips every sent quote past its validity date to expired.
const TaskExpireQuotes = "quotes.expire"

type ExpireQuotesPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
	Source      string    `json:"source"`
}

func NewExpireQuotesTask(payload ExpireQuotesPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpireQuotes, data), nil
}

func ParseExpireQuotesPayload(task *asynq.Task) (ExpireQuotesPayload, error) {
	var payload ExpireQuotesPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ExpireQuotesPayload{}, fmt.Errorf("decode %s payload: %w", TaskExpireQuotes, err)
	}
	return payload, nil
}
