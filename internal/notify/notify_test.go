package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eel-studio/storefront/internal/domain/order"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []Message
	failTo map[string]error
}

func (f *fakeSender) Send(_ context.Context, msg Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failTo[msg.To[0]]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, msg)
	return "msg-" + msg.To[0], nil
}

func notification(email string) order.Notification {
	return order.Notification{
		OrderID:    "o-1",
		BuyerEmail: email,
		BuyerName:  "Kim <script>",
		Summary: order.Summary{
			Size: "Medium (160 × 85 cm)", Resin: "Arctic White", Wood: "Walnut", Leg: "Brushed Gold",
			TotalPriceFormatted: "2,100,000원",
		},
	}
}

func newDispatcher(s Sender, outbox *Outbox) *Dispatcher {
	return NewDispatcher(Config{OperatorEmail: "studio@eel.example", SiteURL: "https://eel.example/"}, s, outbox, nil, nil)
}

func TestDispatcher_SendsOperatorAndBuyer(t *testing.T) {
	s := &fakeSender{}
	d := newDispatcher(s, nil)

	require.NoError(t, d.Notify(context.Background(), notification("kim@example.com")))
	require.Len(t, s.sent, 2)

	op := s.sent[0]
	assert.Equal(t, []string{"studio@eel.example"}, op.To)
	assert.Equal(t, "[EEL] 새 주문 접수 — Kim <script>", op.Subject)
	assert.Contains(t, op.HTML, "주문번호: o-1")
	assert.Contains(t, op.HTML, "https://eel.example/admin")
	assert.Contains(t, op.HTML, "Kim &lt;script&gt;")
	assert.Contains(t, op.HTML, "2,100,000원")

	buyer := s.sent[1]
	assert.Equal(t, BuyerSubject, buyer.Subject)
	assert.Contains(t, buyer.HTML, "https://eel.example/orders")
	assert.Contains(t, buyer.HTML, "Arctic White")
}

func TestDispatcher_NoBuyerEmailSendsOne(t *testing.T) {
	s := &fakeSender{}
	d := newDispatcher(s, nil)

	n := notification("")
	n.BuyerName = ""
	require.NoError(t, d.Notify(context.Background(), n))
	require.Len(t, s.sent, 1)
	assert.Equal(t, "[EEL] 새 주문 접수 — ", s.sent[0].Subject)
}

func TestDispatcher_FailureParks(t *testing.T) {
	s := &fakeSender{failTo: map[string]error{"kim@example.com": errors.New("rate limited")}}
	outbox := NewOutbox(s, 3, nil, nil)
	d := newDispatcher(s, outbox)

	err := d.Notify(context.Background(), notification("kim@example.com"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buyer")
	assert.Len(t, s.sent, 1, "operator still delivered")

	pending := outbox.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, RecipientBuyer, pending[0].Recipient)
	assert.Equal(t, 1, pending[0].Attempts)
}

func TestOutbox_RetryDeliversAndAbandons(t *testing.T) {
	s := &fakeSender{failTo: map[string]error{"a@example.com": errors.New("down"), "b@example.com": errors.New("down")}}
	outbox := NewOutbox(s, 2, nil, nil)
	outbox.Park("o-1", RecipientBuyer, Message{To: []string{"a@example.com"}}, errors.New("down"))
	outbox.Park("o-2", RecipientBuyer, Message{To: []string{"b@example.com"}}, errors.New("down"))

	delete(s.failTo, "a@example.com")
	delivered := outbox.Retry(context.Background())

	assert.Equal(t, 1, delivered)
	assert.Empty(t, outbox.Pending(), "b reached max attempts and was abandoned")
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(NewOutbox(&fakeSender{}, 0, nil, nil), "every now and then", nil)
	assert.Error(t, err)

	s, err := NewScheduler(NewOutbox(&fakeSender{}, 0, nil, nil), "", nil)
	require.NoError(t, err)
	s.Start()
	s.Stop()
}

func TestResendSender(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantID  string
		wantErr string
	}{
		{"accepted", http.StatusOK, `{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`, "49a3999c-0ce1-4ea6-ab68-afcd6dc2e794", ""},
		{"validation", http.StatusUnprocessableEntity, `{"statusCode":422,"name":"validation_error","message":"Invalid 'to' field"}`, "", "validation_error"},
		{"missing id", http.StatusOK, `{}`, "", "missing id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/emails" {
					t.Errorf("path = %s, want /emails", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer re_test" {
					t.Errorf("Authorization = %q", got)
				}
				var msg Message
				if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
					t.Errorf("decode: %v", err)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			id, err := NewResendSender("re_test", srv.URL, 0).Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "hi"})
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Send() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if id != tt.wantID {
				t.Errorf("id = %s, want %s", id, tt.wantID)
			}
		})
	}
}
