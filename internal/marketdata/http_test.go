package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chartServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chart/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bars":[
			{"timestamp":1748822400,"open":100,"high":102,"low":99,"close":101,"adj_close":101,"volume":1000000},
			{"timestamp":1748736000,"open":99,"high":101,"low":98,"close":100,"adj_close":100,"volume":900000},
			{"timestamp":1748908800,"open":0,"high":0,"low":0,"close":0,"adj_close":0,"volume":0}
		]}`)
	})
	mux.HandleFunc("/v1/earnings/AAA", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"next":{"date":"2025-07-15"}}`)
	})
	mux.HandleFunc("/v1/earnings/BBB", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"next":null}`)
	})
	mux.HandleFunc("/v1/quote/AAA", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"price":123.45}`)
	})
	return httptest.NewServer(mux)
}

func TestHTTPClient_DailyBars(t *testing.T) {
	srv := chartServer(t)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 600, 5*time.Second)
	bars, err := c.DailyBars(context.Background(), "AAA", time.Now().AddDate(0, 0, -10), time.Now())
	if err != nil {
		t.Fatalf("DailyBars failed: %v", err)
	}
	// The zeroed holiday bar is dropped and the rest sorted ascending.
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Error("bars not sorted by date")
	}
	if bars[1].AdjClose != 101 {
		t.Errorf("expected adj close 101, got %f", bars[1].AdjClose)
	}
}

func TestHTTPClient_NextEarnings(t *testing.T) {
	srv := chartServer(t)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 600, 5*time.Second)

	when, ok, err := c.NextEarnings(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("NextEarnings failed: %v", err)
	}
	if !ok {
		t.Fatal("expected an earnings date")
	}
	if when.Format("2006-01-02") != "2025-07-15" {
		t.Errorf("expected 2025-07-15, got %s", when)
	}

	_, ok, err = c.NextEarnings(context.Background(), "BBB")
	if err != nil {
		t.Fatalf("NextEarnings failed: %v", err)
	}
	if ok {
		t.Error("BBB has no scheduled earnings")
	}
}

func TestHTTPClient_LastPrice(t *testing.T) {
	srv := chartServer(t)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 600, 5*time.Second)
	price, err := c.LastPrice(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("LastPrice failed: %v", err)
	}
	if price != 123.45 {
		t.Errorf("expected 123.45, got %f", price)
	}
}

func TestHTTPClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 600, 5*time.Second)
	if _, err := c.DailyBars(context.Background(), "AAA", time.Now().AddDate(0, 0, -1), time.Now()); err == nil {
		t.Fatal("expected error on 429")
	}
}
