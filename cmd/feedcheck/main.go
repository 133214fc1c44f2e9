// Command feedcheck is a connectivity probe: it connects to the MEXC
// public stream and the REST API for one symbol and prints what arrives.
// Useful for verifying network access and symbol spelling before letting
// the quoting engine touch an account.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/event"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/exchange/mexc"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/infra"
)

func main() {
	symbol := flag.String("symbol", "ETHUSDC", "trading pair to probe")
	duration := flag.Duration("duration", 15*time.Second, "how long to listen to the stream")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("=== MEXC feed check: %s ===\n\n", *symbol)

	// REST first: trading rules and current top of book.
	rest := mexc.NewClient("", "", "")
	insts, err := rest.GetExchangeInfo(ctx, *symbol)
	if err != nil || len(insts) == 0 {
		fmt.Fprintf(os.Stderr, "exchangeInfo failed: %v\n", err)
		os.Exit(1)
	}
	inst := insts[0]
	fmt.Printf("instrument: tick=%v step=%v minNotional=%v\n", inst.TickSize, inst.StepSize, inst.MinNotional)

	if t, err := rest.GetBookTicker(ctx, *symbol); err == nil {
		fmt.Printf("rest book:  bid=%v ask=%v spread=%v\n\n", t.BidPrice, t.AskPrice, t.Spread())
	} else {
		fmt.Fprintf(os.Stderr, "bookTicker failed: %v\n", err)
	}

	// Then the stream: count events per channel for the probe window.
	inbox := make(chan event.Event, 256)
	seq := new(uint64)
	feed := infra.NewMEXCFeed("", *symbol, inbox, seq)
	worker := infra.NewBaseWSWorker(feed)
	worker.Start(ctx)
	defer worker.Stop()

	counts := map[event.Type]int{}
	deadline := time.After(*duration)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-deadline:
			break loop
		case ev := <-inbox:
			counts[ev.GetType()]++
			if tick, ok := ev.(*event.BookTickerEvent); ok && counts[event.EvBookTicker] == 1 {
				fmt.Printf("first tick: bid=%v ask=%v\n", tick.Ticker.BidPrice, tick.Ticker.AskPrice)
			}
		}
	}

	fmt.Printf("\nreceived over %v:\n", *duration)
	for _, t := range []event.Type{event.EvBookTicker, event.EvTrade, event.EvCandle} {
		fmt.Printf("  %-12s %d\n", t.String(), counts[t])
	}
	if counts[event.EvBookTicker] == 0 {
		fmt.Fprintln(os.Stderr, "\nno book tickers received, feed is NOT healthy")
		os.Exit(1)
	}
	fmt.Println("\nfeed OK")
}
