package emailsvc

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/tests"
)

var conf = &core.Config{AppName: "Practicum", FromEmail: "Practicum <noreply@test.cd>", SendgridApiKey: "SG.key"}

func newMessage(to string) *core.EmailMessage {
	return &core.EmailMessage{
		To:          []mail.Address{{Name: "Ann", Address: to}},
		Subject:     "Grade Received",
		TextContent: "You received 87/100",
	}
}

func TestConsoleService(t *testing.T) {
	var buf bytes.Buffer
	svc := NewConsoleService(log.New(&buf, "", 0), conf)

	svc.SendMessages(newMessage("ann@test.cd"), &core.EmailMessage{Subject: "no recipient", TextContent: "x"})
	svc.Wait()

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Grade Received", sent[0].Subject)

	out := buf.String()
	assert.Contains(t, out, "Subject: [Practicum] Grade Received")
	assert.Contains(t, out, `To: "Ann" <ann@test.cd>`)
	assert.Contains(t, out, "You received 87/100")
	assert.NotContains(t, out, "no recipient")
}

func TestSendgridService(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []map[string]interface{}
		auth   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(data, &body)

		mu.Lock()
		bodies = append(bodies, body)
		auth = r.Header.Get("Authorization")
		mu.Unlock()

		if r.URL.Path != endpoint {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	defaultHost := host
	host = srv.URL
	defer func() { host = defaultHost }()

	logger := testutil.NewLogger()
	svc := NewSendgridService(conf, logger)
	svc.SendMessages(newMessage("ann@test.cd"), &core.EmailMessage{To: []mail.Address{{Address: "x@test.cd"}}})
	svc.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1, "messages without content are not sent")
	assert.Equal(t, "Bearer SG.key", auth)

	from := bodies[0]["from"].(map[string]interface{})
	assert.Equal(t, "noreply@test.cd", from["email"])
	pers := bodies[0]["personalizations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "[Practicum] Grade Received", pers["subject"])
	assert.Zero(t, logger.Count("error"))
}

func TestSendgridService_errorsAreLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	defaultHost := host
	host = srv.URL
	defer func() { host = defaultHost }()

	logger := testutil.NewLogger()
	svc := NewSendgridService(conf, logger)
	svc.SendMessages(newMessage("ann@test.cd"))
	svc.Wait()
	assert.Equal(t, 1, logger.Count("error"))
}

func TestNewService(t *testing.T) {
	std := log.New(io.Discard, "", 0)
	assert.IsType(t, &consoleService{}, NewService(std, &core.Config{Debug: true, SendgridApiKey: "k"}, testutil.NewLogger()))
	assert.IsType(t, &consoleService{}, NewService(std, &core.Config{}, testutil.NewLogger()))
	assert.IsType(t, &sendgridService{}, NewService(std, &core.Config{SendgridApiKey: "k"}, testutil.NewLogger()))
}
