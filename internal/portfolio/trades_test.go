package portfolio

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"hoodview/internal/store"
)

// The fake clock pins "now" to 2024-06-03 15:00 UTC, which is 11:00 in New
// York; today's market date is 2024-06-03.
func TestTodaysOptionTrades(t *testing.T) {
	var pages atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /options/orders/", func(w http.ResponseWriter, r *http.Request) {
		host := "http://" + r.Host
		switch r.URL.Query().Get("cursor") {
		case "":
			pages.Add(1)
			// Newest first: two of today's orders, then one from Friday that
			// must stop pagination before the next page is ever fetched.
			fmt.Fprintf(w, `{"results":[
				{"id":"ord-2","chain_symbol":"TSLA","state":"filled","direction":"credit","price":"1.50","quantity":"1","processed_quantity":"1","updated_at":"2024-06-03T14:45:00Z","legs":[
					{"id":"leg-2","side":"sell","position_effect":"open","option":%q,"executions":[
						{"price":"1.55","quantity":"1","timestamp":"2024-06-03T14:44:58Z"}
					]}
				]},
				{"id":"ord-1","chain_symbol":"AAPL","state":"filled","direction":"debit","price":"2.00","quantity":"2","processed_quantity":"2","updated_at":"2024-06-03T13:30:00Z","legs":[
					{"id":"leg-1","side":"buy","position_effect":"open","option":%q,"executions":[
						{"price":"2.00","quantity":"1","timestamp":"2024-06-03T13:29:00Z"},
						{"price":"2.10","quantity":"1","timestamp":"2024-06-03T13:29:30Z"}
					]}
				]},
				{"id":"ord-0","chain_symbol":"AAPL","state":"filled","direction":"debit","price":"5.00","quantity":"1","processed_quantity":"1","updated_at":"2024-05-31T18:00:00Z","legs":[]}
			],"next":%q}`,
				host+"/options/instruments/opt-t/", host+"/options/instruments/opt-a/",
				host+"/options/orders/?cursor=page2")
		default:
			pages.Add(100)
			fmt.Fprint(w, `{"results":[],"next":null}`)
		}
	})
	mux.HandleFunc("GET /options/instruments/opt-t/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"opt-t","chain_symbol":"TSLA","strike_price":"200.0000","expiration_date":"2024-06-07","type":"put"}`)
	})
	mux.HandleFunc("GET /options/instruments/opt-a/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"opt-a","chain_symbol":"AAPL","strike_price":"190.0000","expiration_date":"2024-06-21","type":"call"}`)
	})

	journal := store.NewTradeJournal(t.TempDir())
	svc := newTestPortfolio(t, mux, journal)

	trades, err := svc.TodaysOptionTrades(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}

	if got := pages.Load(); got != 1 {
		t.Fatalf("pages fetched = %d, want early stop after 1", got)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2: %+v", len(trades), trades)
	}

	// Newest first.
	if trades[0].OrderID != "ord-2" || trades[1].OrderID != "ord-1" {
		t.Fatalf("wrong order: %q then %q", trades[0].OrderID, trades[1].OrderID)
	}

	tsla := trades[0]
	if tsla.Side != "sell" || tsla.PositionEffect != "open" {
		t.Fatalf("unexpected leg fields: %+v", tsla)
	}
	approx(t, "tsla price", tsla.Price, 1.55)
	approx(t, "tsla strike", tsla.StrikePrice, 200)

	// Multi-execution leg: quantity sums, price and time come from the last
	// fill.
	aapl := trades[1]
	approx(t, "aapl quantity", aapl.Quantity, 2)
	approx(t, "aapl price", aapl.Price, 2.10)
	if got := aapl.ExecutedAt.UTC().Format("15:04:05"); got != "13:29:30" {
		t.Fatalf("executed_at = %v", aapl.ExecutedAt)
	}

	// The day's trades are archived as a side effect.
	archived, err := journal.ReadTrades("2024-06-03")
	if err != nil {
		t.Fatal(err)
	}
	if len(archived) != 2 {
		t.Fatalf("archived %d trades, want 2", len(archived))
	}
	if archived[0].OrderID != "ord-2" {
		t.Fatalf("archive order: got %q first", archived[0].OrderID)
	}
}

func TestTodaysOptionTradesSkipsUnfilled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /options/orders/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[
			{"id":"ord-3","chain_symbol":"AAPL","state":"cancelled","price":"2.00","quantity":"1","processed_quantity":"0","updated_at":"2024-06-03T14:00:00Z","legs":[]}
		],"next":null}`)
	})

	svc := newTestPortfolio(t, mux, nil)

	trades, err := svc.TodaysOptionTrades(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 0 {
		t.Fatalf("got %d trades, want 0", len(trades))
	}
}
