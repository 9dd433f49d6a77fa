// Command mixpack compresses a file with the context-mixing engine,
// optionally searching model parameters first, and reports the resulting
// sizes. It demonstrates the public surface of the package; producing a
// self-extracting artifact is the job of a packaging layer.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kr/pretty"

	"github.com/mixpack/mixpack"
	"github.com/mixpack/mixpack/xlog"
)

var (
	level   = flag.Int("level", 1, "optimizer effort; 0 disables the search")
	quotes  = flag.Bool("quotes", true, "model quoted strings separately")
	quick   = flag.Bool("quick", false, "use the cheaper LZ match-cost oracle")
	verbose = flag.Bool("verbose", false, "trace optimizer trials")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] filename\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	name := flag.Arg(0)
	if name == "" {
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(name)
	if err != nil {
		log.Fatalf("%s", err)
	}

	params := mixpack.Default()
	params.ModelQuotes = *quotes
	params.InBits = 8
	if ascii(data) {
		params.InBits = 7
	}

	var logger xlog.Logger
	if *verbose {
		logger = log.New(os.Stderr, "", 0)
	}
	arena := mixpack.NewArena()
	oracle := mixpack.FlateOracle(data, arena)
	if *quick {
		oracle = mixpack.MatchCostOracle(data, arena)
	}

	res, err := mixpack.Optimize(&mixpack.OptimizerConfig{
		Params:   params,
		Level:    *level,
		Estimate: oracle,
		Log:      logger,
	})
	if err != nil {
		log.Fatalf("%s", err)
	}

	model, err := mixpack.NewDefaultModel(res.Best, arena)
	if err != nil {
		log.Fatalf("%s", err)
	}
	c, err := mixpack.Compress(data, model, res.Best)
	model.Release()
	if err != nil {
		log.Fatalf("%s", err)
	}

	fmt.Printf("%s: %d -> %d bytes (oracle %.1f, search %s)\n",
		name, len(data), c.BufLengthInBytes, res.BestScore, res.Elapsed)
	pretty.Println(res.Best)
}

func ascii(data []byte) bool {
	for _, b := range data {
		if b > 0x7f {
			return false
		}
	}
	return true
}
