// Command replay re-executes a recorded fixture through the live pipeline
// and reports any divergence from the fixture's expected dispositions.
// Exits non-zero when the replay does not match.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/context-insight/internal/replay"
)

func main() {
	fixturePath := flag.String("fixture", "", "path to replay fixture JSON")
	checkIdempotence := flag.Bool("idempotence", false, "replay twice and compare the two runs")
	jsonOut := flag.Bool("json", false, "output the replayed envelope as JSON")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--idempotence] [--json]")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fatal("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if *checkIdempotence {
		mismatches, err := replay.VerifyIdempotent(ctx, f)
		if err != nil {
			fatal("%v", err)
		}
		if len(mismatches) > 0 {
			for _, m := range mismatches {
				fmt.Fprintf(os.Stderr, "diverged: %s\n", m)
			}
			os.Exit(1)
		}
		fmt.Printf("%s: two replays identical\n", f.ModuleID)
		return
	}

	res, err := replay.Run(ctx, f)
	if err != nil {
		fatal("%v", err)
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Envelope); err != nil {
			fatal("encode: %v", err)
		}
	}
	if len(res.Mismatches) > 0 {
		for _, m := range res.Mismatches {
			fmt.Fprintf(os.Stderr, "mismatch: %s\n", m)
		}
		os.Exit(1)
	}
	fmt.Printf("%s: %d items replayed, %d expectations matched\n",
		f.ModuleID, len(res.Envelope.Items), len(f.Expected))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
