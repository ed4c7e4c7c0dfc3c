package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.sia.tech/socbench/internal/cac"
	"go.uber.org/zap"
)

var (
	chunkFile string

	chunkCmd = &cobra.Command{
		Use:   "chunk [payload]",
		Short: "print the span and address of a content addressed chunk",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			payload := mustReadPayload(cmd, args, chunkFile)
			c, err := cac.New(payload)
			if err != nil {
				logger.Fatal("failed to build chunk", zap.Error(err))
			}
			fmt.Println("Span:   ", c.Span.Length(), "("+humanize.IBytes(c.Span.Length())+")")
			fmt.Println("Address:", c.Address)
		},
	}
)

// mustReadPayload returns the payload given as the single argument or read
// from file.
func mustReadPayload(cmd *cobra.Command, args []string, file string) []byte {
	switch {
	case file != "" && len(args) > 0:
		logger.Fatal("payload and file are mutually exclusive")
	case file != "":
		buf, err := os.ReadFile(file)
		if err != nil {
			logger.Fatal("failed to read payload", zap.Error(err))
		}
		return buf
	case len(args) == 0:
		cmd.Usage()
		os.Exit(1)
	}
	return []byte(args[0])
}

func init() {
	chunkCmd.Flags().StringVarP(&chunkFile, "file", "f", "", "read the payload from a file")
}
