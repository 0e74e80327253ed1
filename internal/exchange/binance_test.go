package exchange

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTickerPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "ETHUSDT" {
			t.Fatalf("unexpected symbol: %s", got)
		}
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"3012.45000000"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "ETHUSDT", time.Second)
	price, err := client.TickerPrice(context.Background())
	if err != nil {
		t.Fatalf("ticker: %v", err)
	}
	if math.Abs(price-3012.45) > 1e-9 {
		t.Fatalf("price mismatch: %f", price)
	}
}

func TestTickerPriceBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	if _, err := client.TickerPrice(context.Background()); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}

func TestTickerPriceUnparsable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"not-a-number"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	if _, err := client.TickerPrice(context.Background()); err == nil {
		t.Fatalf("expected error for unparsable price")
	}
}
