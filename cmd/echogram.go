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
	"github.com/ooi-data/rca-echo-tools/echogram"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// EchogramMain is wrapped by NewEchogramCommand. It is exported for testing.
var EchogramMain *echogram.Main

// NewEchogramCommand returns a new cobra command wrapping EchogramMain.
func NewEchogramCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	EchogramMain = echogram.NewMain()
	echogramCommand := &cobra.Command{
		Use:   "echogram",
		Short: "echogram - render one day of an instrument's store as PNG echograms",
		Long: `Echogram averages a day of Sv into ping time and range bins and draws
one PNG per channel. With --upload the images are copied to the
visualization bucket under echograms/{year}/{refdes}/.
`,
		RunE: func(command *cobra.Command, args []string) error {
			start := time.Now()
			ctx, cancel := signalContext()
			defer cancel()
			err := EchogramMain.Run(ctx)
			if err != nil {
				return errors.Wrap(err, "rendering echograms")
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := echogramCommand.Flags()
	err := commandeer.Flags(flags, EchogramMain)
	if err != nil {
		panic(err)
	}
	return echogramCommand
}

func init() {
	subcommandFns["echogram"] = NewEchogramCommand
}
