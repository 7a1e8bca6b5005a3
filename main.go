package main

import (
	"os"

	"sellout-ingest/cmd/ingest"
	"sellout-ingest/cmd/profiles"
	"sellout-ingest/cmd/root"
	"sellout-ingest/cmd/worker"
)

func main() {
	root.Cmd.AddCommand(ingest.Cmd)
	root.Cmd.AddCommand(profiles.Cmd)
	root.Cmd.AddCommand(worker.Cmd)

	if err := root.Cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
