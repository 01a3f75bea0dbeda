package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/nats-io/nats.go"
)

var (
	_ Publisher = (*NoopPublisher)(nil)
	_ Publisher = (*NATSPublisher)(nil)
)

// watch subscribes a plain NATS connection to subject and returns its messages.
func watch(t *testing.T, url, subject string) <-chan *nats.Msg {
	t.Helper()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting watcher: %v", err)
	}
	t.Cleanup(nc.Close)
	ch := make(chan *nats.Msg, 16)
	if _, err := nc.ChanSubscribe(subject, ch); err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return ch
}

func next(t *testing.T, ch <-chan *nats.Msg) *nats.Msg {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
		return nil
	}
}

func TestNoopPublisher(t *testing.T) {
	var pub NoopPublisher
	if err := pub.Publish(context.Background(), TopicJobClaimed, JobClaimed{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNATSPublisher_Headers(t *testing.T) {
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()
	ch := watch(t, url, "jobs.>")

	tests := []struct {
		topic  string
		event  any
		wantID string
	}{
		{TopicJobClaimed, JobClaimed{Job: &model.Job{ID: "job-1", CustomerName: "Rose"}, ClaimedBy: "w1"}, "job-1"},
		{TopicJobRejected, JobRejected{JobID: "job-2"}, "job-2"},
		{TopicSessionGranted, SessionChanged{Session: &model.Session{ID: "ses-1"}}, ""},
	}
	seen := map[string]bool{}
	for _, tc := range tests {
		if err := pub.Publish(context.Background(), tc.topic, tc.event); err != nil {
			t.Fatalf("Publish(%s): %v", tc.topic, err)
		}
		msg := next(t, ch)
		if msg.Subject != tc.topic {
			t.Errorf("subject = %q, want %q", msg.Subject, tc.topic)
		}
		if got := msg.Header.Get(HeaderJobID); got != tc.wantID {
			t.Errorf("%s: %s = %q, want %q", tc.topic, HeaderJobID, got, tc.wantID)
		}
		id := msg.Header.Get(nats.MsgIdHdr)
		if id == "" || seen[id] {
			t.Errorf("%s: message id %q is empty or reused", tc.topic, id)
		}
		seen[id] = true
	}
}

func TestNATSPublisher_PayloadIsJSON(t *testing.T) {
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()
	ch := watch(t, url, TopicJobClaimed)

	want := JobClaimed{Job: &model.Job{ID: "job-1", CustomerName: "Rose"}, ClaimedBy: "w1"}
	if err := pub.Publish(context.Background(), TopicJobClaimed, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	var got JobClaimed
	if err := json.Unmarshal(next(t, ch).Data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Job == nil || got.Job.ID != "job-1" || got.ClaimedBy != "w1" {
		t.Errorf("payload = %+v", got)
	}
}

func TestNATSPublisher_PublishAfterClose(t *testing.T) {
	pub, err := NewNATSPublisher(startTestNATS(t))
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := pub.Publish(context.Background(), TopicJobClaimed, JobClaimed{}); err == nil {
		t.Error("expected error publishing after close")
	}
}

func TestJobKey(t *testing.T) {
	for _, tc := range []struct {
		event any
		want  string
	}{
		{JobIngested{Job: &model.Job{ID: "a"}}, "a"},
		{JobClaimed{Job: &model.Job{ID: "b"}}, "b"},
		{JobRejected{JobID: "c"}, "c"},
		{JobCompleted{Job: &model.Job{ID: "d"}}, "d"},
		{JobClaimed{}, ""},
	} {
		k, ok := tc.event.(jobKeyed)
		if !ok {
			t.Fatalf("%T does not carry a job key", tc.event)
		}
		if got := k.jobKey(); got != tc.want {
			t.Errorf("%T.jobKey() = %q, want %q", tc.event, got, tc.want)
		}
	}
	if _, ok := any(SessionChanged{}).(jobKeyed); ok {
		t.Error("session events should not carry a job key")
	}
}
