package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

var submitCmd = &cobra.Command{
	Use:   "submit <claim.json|->",
	Short: "Submit one claim and print the outcome as JSON",
	Long: `submit reads a claim in the same JSON shape accepted by POST /v1/claims
(receipt contents base64-encoded), delivers it and prints the outcome.
Progress is written to stderr. The exit status is non-zero when the claim
could not be delivered.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		claim, err := readClaim(args[0])
		if err != nil {
			return err
		}

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		stderr := cmd.ErrOrStderr()
		out, err := a.claims.Submit(ctx, claim, func(ev domain.ProgressEvent) {
			switch {
			case ev.Warning != "":
				fmt.Fprintf(stderr, "warning: %s\n", ev.Warning)
			case ev.State == domain.StateSubmitting:
				fmt.Fprintf(stderr, "sending batch %d of %d\n", ev.Batch, ev.Total)
			default:
				fmt.Fprintf(stderr, "%s\n", ev.State)
			}
		})
		if err != nil {
			return err
		}

		if err := printJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
		if !out.Delivered() {
			return fmt.Errorf("claim %s not delivered: %s", out.ClaimID, out.Message)
		}
		return nil
	},
}

// readClaim loads a ClaimRequest from path, or stdin when path is "-".
func readClaim(path string) (*domain.Claim, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var req domain.ClaimRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decoding claim %s: %w", path, err)
	}
	return req.ToClaim()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
