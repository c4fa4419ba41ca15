package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()

	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server did not start")
	}

	t.Cleanup(server.Shutdown)
	return server
}

func connectTestNATS(t *testing.T, server *natsserver.Server) *nats.Conn {
	t.Helper()
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func TestNATSNotifierSupervisorAlert(t *testing.T) {
	server := startTestNATSServer(t)
	nc := connectTestNATS(t, server)

	sub, err := nc.SubscribeSync(SubjectSupervisor)
	require.NoError(t, err)

	notifier, err := NewNATSNotifier(connectTestNATS(t, server), zap.NewNop())
	require.NoError(t, err)

	err = notifier.NotifySupervisor(context.Background(), "New Help Request", "req-42")
	require.NoError(t, err)

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)

	var event SupervisorEvent
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, "supervisor_alert", event.Type)
	assert.Equal(t, "req-42", event.RequestID)
	assert.Equal(t, "New Help Request", event.Message)
	assert.False(t, event.Timestamp.IsZero())
}

func TestNATSNotifierCallerFollowUp(t *testing.T) {
	server := startTestNATSServer(t)
	nc := connectTestNATS(t, server)

	sub, err := nc.SubscribeSync(subjectCallerPrefix + ">")
	require.NoError(t, err)

	notifier, err := NewNATSNotifier(connectTestNATS(t, server), zap.NewNop())
	require.NoError(t, err)

	err = notifier.NotifyCaller(context.Background(), "+1-555-0001", "Here's your answer")
	require.NoError(t, err)

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)

	var event CallerEvent
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, "caller_followup", event.Type)
	assert.Equal(t, "+1-555-0001", event.Contact)
	assert.Equal(t, CallerSubject("+1-555-0001"), msg.Subject)
}

func TestNewNATSNotifierRequiresConnection(t *testing.T) {
	_, err := NewNATSNotifier(nil, zap.NewNop())
	assert.Error(t, err)
}

func TestCallerSubjectSanitization(t *testing.T) {
	assert.Equal(t, "frontdesk.notify.caller._1_555_0001", CallerSubject("+1-555-0001"))
	assert.Equal(t, "frontdesk.notify.caller.unknown", CallerSubject(""))
}
