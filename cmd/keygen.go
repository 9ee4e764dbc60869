package cmd

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/TopiaNetwork/dacore/crypt"
	tpcrtypes "github.com/TopiaNetwork/dacore/crypt/types"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
)

var keySeed string

func KeyGenCmd() *cobra.Command {
	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generates a BLS key pair.",
		Long:  `Generates a BLS key pair, deterministically when a seed is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			cmd.SilenceUsage = true

			cs := crypt.CreateCryptService(tplog.CreateWriterLogger(tplogcmm.ErrorLevel, io.Discard), tpcrtypes.CryptType_BN256)

			var priKey tpcrtypes.PrivateKey
			var pubKey tpcrtypes.PublicKey
			var err error
			if keySeed != "" {
				priKey, pubKey, err = cs.GeneratePriPubKeyBySeed([]byte(keySeed))
			} else {
				priKey, pubKey, err = cs.GeneratePriPubKey()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "private key: %s\n", hex.EncodeToString(priKey))
			fmt.Fprintf(out, "public key:  %s\n", pubKey.String())
			return nil
		},
	}
	keygenCmd.Flags().StringVarP(&keySeed, "seed", "s", "", "derive the key pair from this seed")

	return keygenCmd
}
