package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.sia.tech/socbench/internal/identifier"
	"go.sia.tech/socbench/internal/redundancy"
	"go.sia.tech/socbench/internal/soc"
	"go.sia.tech/socbench/internal/state"
	"go.uber.org/zap"
)

var (
	socFile  string
	socID    string
	levelArg string

	socCmd = &cobra.Command{
		Use:   "soc",
		Short: "construct, upload and download single owner chunks",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Usage()
		},
	}

	socConstructCmd = &cobra.Command{
		Use:   "construct [payload]",
		Short: "sign a payload with the session key and print the envelope",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			payload := mustReadPayload(cmd, args, socFile)
			s := mustLoadStore()

			var id soc.ID
			if socID != "" {
				if err := id.UnmarshalText([]byte(socID)); err != nil {
					logger.Fatal("failed to parse identifier", zap.Error(err))
				}
			} else {
				id = peekID(s)
			}

			e, err := soc.Construct(s.Signer(), id, payload, cfg.Format)
			if err != nil {
				logger.Fatal("failed to construct SOC", zap.Error(err))
			} else if err := soc.Verify(e); err != nil {
				logger.Fatal("constructed SOC failed verification", zap.Error(err))
			}
			printEnvelope(e)
		},
	}

	socUploadCmd = &cobra.Command{
		Use:   "upload [payload]",
		Short: "upload a payload under the next session identifier",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			payload := mustReadPayload(cmd, args, socFile)
			level := mustParseLevel()
			c := mustNewClient()
			s := mustLoadStore()

			gen, err := identifier.NewFrom(s.Counter())
			if err != nil {
				logger.Fatal("failed to resume identifiers", zap.Error(err))
			}
			id, err := gen.Next()
			if err != nil {
				logger.Fatal("failed to allocate identifier", zap.Error(err))
			}
			e, err := soc.Construct(s.Signer(), id, payload, cfg.Format)
			if err != nil {
				logger.Fatal("failed to construct SOC", zap.Error(err))
			}
			if err := c.UploadSOC(ctx, e, level); err != nil {
				logger.Fatal("failed to upload SOC", zap.Error(err))
			}
			// an identifier is spent once the upload succeeds
			if err := s.SetCounter(gen.Counter()); err != nil {
				logger.Fatal("failed to save identifier counter", zap.Error(err))
			}
			printEnvelope(e)
		},
	}

	socGetCmd = &cobra.Command{
		Use:   "get <owner> <identifier>",
		Short: "download a single owner chunk and print its payload",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			var (
				owner soc.Owner
				id    soc.ID
			)
			if err := owner.UnmarshalText([]byte(args[0])); err != nil {
				logger.Fatal("failed to parse owner", zap.Error(err))
			} else if err := id.UnmarshalText([]byte(args[1])); err != nil {
				logger.Fatal("failed to parse identifier", zap.Error(err))
			}

			data, err := mustNewClient().DownloadSOC(ctx, owner, id, mustParseLevel())
			if err != nil {
				logger.Fatal("failed to download SOC", zap.Error(err))
			}
			os.Stdout.Write(data)
			fmt.Println()
		},
	}
)

// peekID returns the next session identifier without spending it.
func peekID(s *state.Store) soc.ID {
	gen, err := identifier.NewFrom(s.Counter())
	if err != nil {
		logger.Fatal("failed to resume identifiers", zap.Error(err))
	}
	id, err := gen.Next()
	if err != nil {
		logger.Fatal("failed to allocate identifier", zap.Error(err))
	}
	return id
}

func mustParseLevel() redundancy.Level {
	level, err := redundancy.Parse(levelArg)
	if err != nil {
		logger.Fatal("failed to parse redundancy level", zap.Error(err))
	}
	return level
}

func printEnvelope(e *soc.Envelope) {
	fmt.Println("Owner:     ", e.Owner)
	fmt.Println("Identifier:", e.ID)
	fmt.Println("Address:   ", e.Address())
	fmt.Println("Signature: ", e.Signature)
	fmt.Println("Chunk:     ", e.Chunk.Address)
	fmt.Println("Format:    ", e.Format)
	fmt.Println("Body:      ", hex.EncodeToString(e.Body))
	fmt.Println("Signed in: ", e.ConstructionTime)
}

func init() {
	for _, c := range []*cobra.Command{socConstructCmd, socUploadCmd} {
		c.Flags().StringVarP(&socFile, "file", "f", "", "read the payload from a file")
	}
	socConstructCmd.Flags().StringVar(&socID, "id", "", "hex identifier (defaults to the next session identifier)")
	for _, c := range []*cobra.Command{socUploadCmd, socGetCmd, feedUpdateCmd, feedGetCmd} {
		c.Flags().StringVarP(&levelArg, "level", "r", redundancy.None.String(), "redundancy level")
	}
}
