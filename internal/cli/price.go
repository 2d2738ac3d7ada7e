package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/output"
	"github.com/mrz1836/ccdwallet/internal/price"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var priceAmount string

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Show the CCD/USD price",
	Long: `Show the current CCD price in USD from CoinGecko. With --amount the
value of that many CCD is shown as well.

Example:
  ccdwallet price
  ccdwallet price --amount 1250.5`,
	Args: cobra.NoArgs,
	RunE: runPrice,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(priceCmd)
	priceCmd.Flags().StringVar(&priceAmount, "amount", "", "CCD amount to value")
}

// priceResult is the JSON shape of price.
type priceResult struct {
	price.Quote

	Amount   string `json:"amount,omitempty"`
	ValueUSD string `json:"value_usd,omitempty"`
}

func runPrice(cmd *cobra.Command, _ []string) error {
	var micro uint64
	if priceAmount != "" {
		v, err := chain.ParseCCD(priceAmount)
		if err != nil {
			return err
		}
		micro = v
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	q, err := newPriceService().USD(ctx)
	if err != nil {
		return err
	}

	res := priceResult{Quote: q}
	if priceAmount != "" {
		res.Amount = chain.FormatCCD(micro)
		res.ValueUSD = price.ValueUSD(micro, q)
	}
	return formatter.Result(res, func(w io.Writer) error {
		out(w, "1 CCD = $%.4f\n", q.USD)
		if res.ValueUSD != "" {
			out(w, "%s CCD = $%s\n", res.Amount, res.ValueUSD)
		}
		if q.Stale {
			output.Warnf(w, "price service unavailable, showing price from %s", q.FetchedAt.Format("2006-01-02 15:04 MST"))
		}
		return nil
	})
}
