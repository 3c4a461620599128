package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/catalog"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/valuation"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func estimateCmd() *cobra.Command {
	var in valuation.Input
	var asJSON bool

	cmd := &cobra.Command{
		Use:   EstimateCmdName,
		Short: EstimateCmdShort,
		Example: `  carzone estimate --maker "Hyundai" --model Creta --year 2021 --km 42000 \
    --fuel Diesel --transmission Automatic --condition Good \
    --state Maharashtra --city Pune --ownership "First Owner"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Load(viper.GetString("catalog.path"))
			if err != nil {
				return err
			}
			res, err := valuation.NewEngine(cat).EstimateFor(in)
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				slog.Warn("estimate input not in catalog", "warning", w)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return printEstimate(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Maker, "maker", "", "car maker")
	f.StringVar(&in.Model, "model", "", "car model")
	f.IntVar(&in.Year, "year", 0, "year of manufacture")
	f.Int64Var(&in.KmDriven, "km", 0, "kilometres driven")
	f.StringVar(&in.FuelType, "fuel", "Petrol", "fuel type")
	f.StringVar(&in.Transmission, "transmission", "Manual", "transmission")
	f.StringVar(&in.Condition, "condition", "Good", "condition (Excellent, Good, Fair, Poor)")
	f.StringVar(&in.BodyStyle, "body-style", "", "body style (optional)")
	f.StringVar(&in.DriveWheels, "drive-wheels", "", "drive wheels (optional)")
	f.StringVar(&in.State, "state", "", "state")
	f.StringVar(&in.City, "city", "", "city")
	f.StringVar(&in.Ownership, "ownership", "First Owner", "ownership")
	f.BoolVar(&asJSON, "json", false, "print the estimate as JSON")
	_ = cmd.MarkFlagRequired("maker")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("year")

	return cmd
}

func printEstimate(out io.Writer, res valuation.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "base price\t₹%d\n", res.BasePrice)
	for _, adj := range res.Adjustments {
		label := adj.Stage
		if adj.Key != "" {
			label = fmt.Sprintf("%s (%s)", adj.Stage, adj.Key)
		}
		fmt.Fprintf(tw, "%s\t×%.4f\n", label, adj.Factor)
	}
	fmt.Fprintf(tw, "estimate\t₹%d\n", res.Price)
	return tw.Flush()
}
