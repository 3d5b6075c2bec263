package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"

	"insta-iq-go/internal/config"
	"insta-iq-go/pkg/tasks"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type recordingProcessor struct {
	seen []tasks.IngestionTask
}

func (p *recordingProcessor) Process(_ context.Context, task tasks.IngestionTask) error {
	p.seen = append(p.seen, task)
	if task.Profile == "broken" {
		return errors.New("scrape failed")
	}
	return nil
}

func message(offset int64, task tasks.IngestionTask) kafka.Message {
	b, _ := json.Marshal(task)
	return kafka.Message{Offset: offset, Value: b}
}

func TestConsumeCommitsEveryMessageOnce(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		message(1, tasks.IngestionTask{RunID: "a", Profile: "nasa"}),
		{Offset: 2, Value: []byte("not json")},
		message(3, tasks.IngestionTask{RunID: "b", Profile: "broken"}),
	}}
	p := &recordingProcessor{}

	Consume(context.Background(), r, p)

	assert.Equal(t, []int64{1, 2, 3}, r.committed)
	assert.Equal(t, []tasks.IngestionTask{{RunID: "a", Profile: "nasa"}, {RunID: "b", Profile: "broken"}}, p.seen)
	assert.True(t, r.closed)
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, brokers(config.KafkaConfig{Brokers: " k1:9092, ,k2:9092"}))
	assert.Nil(t, brokers(config.KafkaConfig{}))
}
