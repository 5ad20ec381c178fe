// Command slotariff serves and inspects the Slovenian electricity tariff.
package main

import (
	"os"
	_ "time/tzdata"

	"github.com/bher20/slotariff/cmd/slotariff/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
