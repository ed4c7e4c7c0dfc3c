package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.sia.tech/socbench/internal/soc"
	"go.uber.org/zap"
)

var (
	showPrivate bool

	keyCmd = &cobra.Command{
		Use:   "key",
		Short: "manage the session owner key",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Usage()
		},
	}

	keyShowCmd = &cobra.Command{
		Use:   "show",
		Short: "print the session owner",
		Run: func(cmd *cobra.Command, args []string) {
			s := mustLoadStore()
			fmt.Println("Owner:     ", s.Signer().Owner())
			fmt.Println("Identifier:", s.Counter())
			if showPrivate {
				fmt.Println("Private Key:", s.Signer().PrivateKeyHex())
			}
		},
	}

	keyGenerateCmd = &cobra.Command{
		Use:   "generate",
		Short: "replace the session key with a random one",
		Run: func(cmd *cobra.Command, args []string) {
			s := mustLoadStore()
			signer := soc.GenerateKeySigner()
			if err := s.SetSigner(signer); err != nil {
				logger.Fatal("failed to save key", zap.Error(err))
			}
			fmt.Println("Owner:", signer.Owner())
		},
	}

	keyImportCmd = &cobra.Command{
		Use:   "import <private key>",
		Short: "replace the session key with a hex encoded private key",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			signer, err := soc.KeySignerFromHex(args[0])
			if err != nil {
				logger.Fatal("failed to parse key", zap.Error(err))
			}
			s := mustLoadStore()
			if err := s.SetSigner(signer); err != nil {
				logger.Fatal("failed to save key", zap.Error(err))
			}
			fmt.Println("Owner:", signer.Owner())
		},
	}
)

func init() {
	keyShowCmd.Flags().BoolVar(&showPrivate, "private", false, "also print the private key")
}
