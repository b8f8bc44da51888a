package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mkch/paybot/internal/inventory"
	"github.com/mkch/paybot/pkg/config"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var path string
	rootCmd := &cobra.Command{
		Use:           "codes",
		Short:         "Maintain the PASSCODE inventory file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path != "" {
				return nil
			}
			cfg, err := config.LoadStore()
			if err != nil {
				return err
			}
			path = cfg.CodesPath
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&path, "file", "f", "", "Inventory file (defaults to PAYBOT_CODES_PATH)")

	open := func() (*inventory.Store, error) {
		return inventory.NewStore(path)
	}
	rootCmd.AddCommand(countCmd(open))
	rootCmd.AddCommand(addCmd(open))
	rootCmd.AddCommand(peekCmd(open))
	return rootCmd
}

type opener func() (*inventory.Store, error)

func countCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print how many codes are left",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			n, err := store.Count()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func addCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "add [file|-]",
		Short: "Append codes, one per line, from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}
			codes, err := readLines(src)
			if err != nil {
				return err
			}
			store, err := open()
			if err != nil {
				return err
			}
			added, err := store.Append(codes)
			if err != nil {
				return err
			}
			total, err := store.Count()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d codes, %d in stock\n", added, total)
			return nil
		},
	}
}

func peekCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peek",
		Short: "Show the codes that will be handed out next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}
			store, err := open()
			if err != nil {
				return err
			}
			codes, err := store.Peek(limit)
			if err != nil {
				return err
			}
			for _, c := range codes {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 5, "Maximum codes to show")
	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
