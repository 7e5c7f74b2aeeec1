package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func crossoverAlert() Alert {
	barTS := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	return Alert{
		Level:    AlertInfo,
		Title:    "NIFTY BUY crossover",
		Message:  "Close crossed above SMA(20)",
		Symbol:   "^NSEI",
		Signal:   "BUY",
		Price:    22015.5,
		Target:   22060.25,
		Stoploss: 21970.75,
		BarTS:    &barTS,
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.baseURL = srv.URL
	if err := n.Send(context.Background(), crossoverAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got["chat_id"] != "42" || got["parse_mode"] != "MarkdownV2" {
		t.Errorf("unexpected payload %v", got)
	}
	text, _ := got["text"].(string)
	if !strings.Contains(text, `SMA\(20\)`) {
		t.Errorf("message not escaped: %q", text)
	}
	if !strings.Contains(text, "target   22060.25") {
		t.Errorf("levels missing: %q", text)
	}
}

func TestTelegramNotifier_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.baseURL = srv.URL
	if err := n.Send(context.Background(), crossoverAlert()); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestWebhookNotifier_Payload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), crossoverAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["signal"] != "BUY" || got["symbol"] != "^NSEI" || got["target"] != 22060.25 {
		t.Errorf("unexpected payload %v", got)
	}
	if _, ok := got["ts"]; !ok {
		t.Error("missing ts")
	}
	if got["bar_ts"] != "2026-03-02T04:00:00Z" {
		t.Errorf("bar_ts = %v", got["bar_ts"])
	}
}

func TestWebhookNotifier_OperationalAlertOmitsSignalFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	alert := Alert{Level: AlertWarning, Title: "Bar source degraded", Message: "yahoo: 502"}
	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), alert); err != nil {
		t.Fatalf("Send: %v", err)
	}
	for _, k := range []string{"bar_ts", "signal", "symbol", "target"} {
		if v, ok := got[k]; ok {
			t.Errorf("%s should be omitted, got %v", k, v)
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("a_b.c!"); got != `a\_b\.c\!` {
		t.Errorf("escapeMarkdown = %q", got)
	}
}

type failing struct{ err error }

func (f failing) Send(ctx context.Context, a Alert) error { return f.err }

func TestMulti_JoinsErrors(t *testing.T) {
	errA := errors.New("a down")
	m := Multi{NewLogNotifier(), failing{errA}, NewLogNotifier()}
	err := m.Send(context.Background(), crossoverAlert())
	if !errors.Is(err, errA) {
		t.Errorf("expected joined errA, got %v", err)
	}
	if err := (Multi{NewLogNotifier()}).Send(context.Background(), crossoverAlert()); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
