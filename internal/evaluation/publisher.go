package evaluation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/algorithm-ninja/task-wizard/internal/common/mq"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

// StatusPublisher notifies downstream consumers (webhooks, scoreboards)
// that an evaluation reached a terminal state.
type StatusPublisher interface {
	PublishFinalStatus(ctx context.Context, eval Evaluation) error
}

// FinalStatusEvent is the published payload.
type FinalStatusEvent struct {
	EvaluationID string `json:"evaluation_id"`
	SubmissionID string `json:"submission_id"`
	Status       Status `json:"status"`
	CreatedAt    int64  `json:"created_at"`
}

// MQStatusPublisher publishes terminal status events to a message queue.
type MQStatusPublisher struct {
	queue mq.Producer
	topic string
}

func NewMQStatusPublisher(queue mq.Producer, topic string) *MQStatusPublisher {
	return &MQStatusPublisher{queue: queue, topic: topic}
}

func (p *MQStatusPublisher) PublishFinalStatus(ctx context.Context, eval Evaluation) error {
	if p == nil || p.queue == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("status publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("status topic is required")
	}
	if !eval.Status.Terminal() {
		return appErr.ValidationError("status", "must be terminal")
	}
	payload, err := json.Marshal(FinalStatusEvent{
		EvaluationID: eval.ID,
		SubmissionID: eval.SubmissionID,
		Status:       eval.Status,
		CreatedAt:    time.Now().Unix(),
	})
	if err != nil {
		return appErr.Wrap(err, appErr.InternalServerError)
	}
	message := mq.NewMessage(payload)
	message.ID = eval.ID
	// Consumers can filter on the status without decoding the payload.
	message.SetHeader("x-status", string(eval.Status))
	if err := p.queue.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "publish status event failed")
	}
	return nil
}

var _ StatusPublisher = (*MQStatusPublisher)(nil)
