package main

import (
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "medical-rag-chatbot"

func main() {
	root := &cobra.Command{
		Use:   "medchat",
		Short: "Medical question answering over a local document index",
		Long: "medchat answers medical questions from a set of indexed PDF documents.\n" +
			"Run `medchat ingest` to build the index, then `medchat serve` to start the web form.",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(askCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
