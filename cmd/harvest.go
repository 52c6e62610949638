// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/ooi-data/rca-echo-tools/ingest"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// HarvestMain is wrapped by NewHarvestCommand. It is exported for testing.
var HarvestMain *ingest.Main

// NewHarvestCommand returns a new cobra command wrapping HarvestMain.
func NewHarvestCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	HarvestMain = ingest.NewMain()
	harvestCommand := &cobra.Command{
		Use:   "harvest",
		Short: "harvest - calibrate a range of days of raw files into an instrument's store",
		Long: `Harvest lists the raw files of every day in [start-date, end-date],
calibrates them to Sv, and commits them to the instrument's store one
batch of days at a time. The run type decides how the run relates to
what the ledger says was already harvested:

  refresh  create the store from scratch; the store must not exist
  append   add days which are not in the ledger yet
  prepend  add days before the earliest day in the ledger

With --cloud the run is published to harvest workers over Kafka instead.
`,
		RunE: func(command *cobra.Command, args []string) error {
			start := time.Now()
			ctx, cancel := signalContext()
			defer cancel()
			err := HarvestMain.Run(ctx)
			if err != nil {
				return errors.Wrap(err, "running harvest")
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := harvestCommand.Flags()
	err := commandeer.Flags(flags, HarvestMain)
	if err != nil {
		panic(err)
	}
	return harvestCommand
}

func init() {
	subcommandFns["harvest"] = NewHarvestCommand
}
