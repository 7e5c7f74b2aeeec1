// cmd/signal fetches bars once, evaluates the SMA signals and ATR risk
// levels, and prints a summary. It exits non-zero when no signal can be
// computed.
//
// Usage:
//
//	go run ./cmd/signal --source=yahoo --fast=5 --slow=20 --multiplier=1.5 --chain
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"nifty-signal/config"
	"nifty-signal/internal/marketdata"
	"nifty-signal/internal/markethours"
	"nifty-signal/internal/model"
	"nifty-signal/internal/optionchain"
	"nifty-signal/internal/signal"
	sqlitestore "nifty-signal/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[signal] %v", err)
	}

	// Flags default to the environment configuration.
	flag.StringVar(&cfg.BarSource, "source", cfg.BarSource, "Bar source: yahoo, smartapi or sqlite")
	flag.StringVar(&cfg.Symbol, "symbol", cfg.Symbol, "Ticker for the yahoo source")
	flag.DurationVar(&cfg.BarInterval, "interval", cfg.BarInterval, "Bar interval")
	flag.DurationVar(&cfg.BarLookback, "lookback", cfg.BarLookback, "How far back to fetch bars")
	flag.IntVar(&cfg.FastWindow, "fast", cfg.FastWindow, "Fast SMA window")
	flag.IntVar(&cfg.SlowWindow, "slow", cfg.SlowWindow, "Slow SMA window")
	flag.IntVar(&cfg.ATRWindow, "atr", cfg.ATRWindow, "ATR window")
	flag.IntVar(&cfg.CrossoverWindow, "crossover", cfg.CrossoverWindow, "SMA window for close crossovers")
	flag.Float64Var(&cfg.Multiplier, "multiplier", cfg.Multiplier, "ATR multiplier for target/stoploss")
	flag.IntVar(&cfg.Precision, "precision", cfg.Precision, "Decimal places for target/stoploss")
	flag.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "SQLite archive path")
	archive := flag.Bool("archive", false, "Archive fetched bars to the SQLite database")
	withChain := flag.Bool("chain", false, "Also fetch the NSE option chain")
	recent := flag.Int("recent", 5, "Number of recent crossovers to print")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[signal] %v", err)
	}
	if err := markethours.AddHolidays(cfg.ExtraHolidays...); err != nil {
		log.Fatalf("[signal] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var stores marketdata.Stores
	if cfg.BarSource == config.SourceSQLite {
		reader, err := sqlitestore.NewReader(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("[signal] %v", err)
		}
		defer reader.Close()
		stores.Reader = reader
	} else if *archive {
		writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			log.Fatalf("[signal] %v", err)
		}
		defer writer.Close()
		stores.Archive = writer
	}

	src, shutdown, err := marketdata.NewSource(cfg, stores, nil)
	if err != nil {
		log.Fatalf("[signal] %v", err)
	}
	evaluator, err := signal.NewEvaluator(cfg.SignalConfig())
	if err != nil {
		log.Fatalf("[signal] %v", err)
	}

	bars, err := src.FetchBars(ctx, cfg.BarRequest())
	if err != nil {
		logout(shutdown)
		log.Fatalf("[signal] fetch bars: %v", err)
	}
	res, evalErr := evaluator.Evaluate(bars)

	var chain *model.OptionChain
	if *withChain {
		c, err := optionchain.NewNSESource(cfg.OptionChainURL).FetchOptionChain(ctx, cfg.OptionSymbol)
		if err != nil {
			log.Printf("[signal] option chain not available currently: %v", err)
		} else {
			chain = &c
		}
	}

	printSummary(os.Stdout, cfg, bars, res, evalErr, *recent)
	if chain != nil {
		printOptionChain(os.Stdout, *chain, cfg.OptionTopN)
	}

	logout(shutdown)
	if evalErr != nil {
		var insufficient *model.InsufficientDataError
		if errors.As(evalErr, &insufficient) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func logout(shutdown marketdata.Shutdown) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Printf("[signal] %v", err)
	}
}

func printSummary(w io.Writer, cfg *config.Config, bars model.BarSeries, res signal.Result, evalErr error, recent int) {
	now := time.Now()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║              NIFTY SIGNAL                    ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════════════╣")
	fmt.Fprintf(w, "║  Symbol:       %-29s ║\n", cfg.Symbol)
	fmt.Fprintf(w, "║  Source:       %-29s ║\n", cfg.BarSource)
	fmt.Fprintf(w, "║  Bars:         %-29s ║\n", fmt.Sprintf("%d x %s", len(bars), cfg.BarInterval))
	if last, ok := bars.Last(); ok {
		fmt.Fprintf(w, "║  Last bar:     %-29s ║\n", last.TS.In(markethours.IST).Format("Mon 02 Jan 15:04 IST"))
		fmt.Fprintf(w, "║  Latest price: %-29.2f ║\n", last.Close)
	}
	if evalErr != nil {
		fmt.Fprintf(w, "║  Signal:       %-29s ║\n", "unavailable ("+model.ErrorKind(evalErr)+")")
	} else {
		fmt.Fprintf(w, "║  Signal:       %-29s ║\n", fmt.Sprintf("%s (SMA%d vs SMA%d)", res.Latest.Signal, cfg.FastWindow, cfg.SlowWindow))
		fmt.Fprintf(w, "║  Target:       %-29.*f ║\n", cfg.Precision, res.Levels.Target)
		fmt.Fprintf(w, "║  Stoploss:     %-29.*f ║\n", cfg.Precision, res.Levels.Stoploss)
		fmt.Fprintf(w, "║  ATR(%-2d):      %-29.2f ║\n", cfg.ATRWindow, res.LastATR)
	}
	fmt.Fprintf(w, "║  Market:       %-29s ║\n", markethours.StatusString(now))
	fmt.Fprintln(w, "╚══════════════════════════════════════════════╝")

	if evalErr != nil {
		fmt.Fprintf(w, "\n  %v\n", evalErr)
		return
	}
	xs := res.Crossovers
	if len(xs) > recent {
		xs = xs[len(xs)-recent:]
	}
	fmt.Fprintf(w, "\n  Recent crossovers (close vs SMA%d):\n", cfg.CrossoverWindow)
	if len(xs) == 0 {
		fmt.Fprintln(w, "    none")
	}
	for _, x := range xs {
		fmt.Fprintf(w, "    %s  %-4s  close %.2f\n",
			x.TS.In(markethours.IST).Format("02 Jan 15:04"), x.Signal, bars[x.Index].Close)
	}
}

func printOptionChain(w io.Writer, chain model.OptionChain, n int) {
	fmt.Fprintf(w, "\n  Option chain %s (expiry %s, PCR %.2f):\n", chain.Symbol, chain.Expiry, chain.PutCallRatio())
	fmt.Fprintf(w, "    %10s %12s %12s\n", "Strike", "Call OI", "Put OI")
	for _, s := range chain.Top(n) {
		fmt.Fprintf(w, "    %10.0f %12d %12d\n", s.Strike, s.CallOI, s.PutOI)
	}
}
