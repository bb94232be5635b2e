// Command costsim simulates the production/logistics cost model from the
// command line and serves it over HTTP.
package main

import (
	"os"

	"github.com/vinaykashyap1996/circonomit-sim/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
