package evaluation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/algorithm-ninja/task-wizard/internal/common/mq"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

type capturingProducer struct {
	topic   string
	message *mq.Message
}

func (p *capturingProducer) Publish(_ context.Context, topic string, message *mq.Message) error {
	p.topic = topic
	p.message = message
	return nil
}

func TestPublishFinalStatus(t *testing.T) {
	t.Parallel()
	producer := &capturingProducer{}
	publisher := NewMQStatusPublisher(producer, "evaluation.status.final")

	eval := Evaluation{ID: "e1", SubmissionID: "s1", Status: StatusSucceeded}
	if err := publisher.PublishFinalStatus(context.Background(), eval); err != nil {
		t.Fatalf("PublishFinalStatus: %v", err)
	}

	if producer.topic != "evaluation.status.final" {
		t.Fatalf("topic = %q", producer.topic)
	}
	if producer.message.ID != "e1" {
		t.Fatalf("message id = %q, want the evaluation id", producer.message.ID)
	}
	if got := producer.message.Headers["x-status"]; got != string(StatusSucceeded) {
		t.Fatalf("x-status header = %q, want succeeded", got)
	}

	var event FinalStatusEvent
	if err := json.Unmarshal(producer.message.Body, &event); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if event.EvaluationID != "e1" || event.SubmissionID != "s1" || event.Status != StatusSucceeded {
		t.Fatalf("payload = %+v", event)
	}
}

func TestPublishFinalStatusRejectsNonTerminal(t *testing.T) {
	t.Parallel()
	publisher := NewMQStatusPublisher(&capturingProducer{}, "evaluation.status.final")

	eval := Evaluation{ID: "e1", SubmissionID: "s1", Status: StatusRunning}
	err := publisher.PublishFinalStatus(context.Background(), eval)
	if appErr.GetCode(err) != appErr.ValidationFailed {
		t.Fatalf("got %v, want ValidationFailed", err)
	}
}
