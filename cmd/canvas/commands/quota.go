package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewQuotaCommand creates the quota command.
func NewQuotaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show remaining rate-limit quota",
		Long:  "Issue a single request and report the X-Rate-Limit-Remaining value the API returned",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuotaCommand()
		},
	}
}

func runQuotaCommand() error {
	client, err := CreateClient(context.Background())
	if err != nil {
		return err
	}
	defer client.Close()

	// The quota value is only known after at least one response.
	if err := client.Courses().Get(context.Background()); err != nil {
		return fmt.Errorf("failed to query API: %w", err)
	}

	remaining, observed := client.Remaining()

	value := NotAvailable
	if observed {
		value = strconv.FormatFloat(remaining, 'f', -1, 64)
	}

	type quotaInfo struct {
		Remaining string `json:"remaining" yaml:"remaining"`
	}

	renderer := StandardRenderer(func(info quotaInfo) error {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Property", "Value")
		_ = table.Append("Remaining", info.Remaining)

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	})

	return renderer.Render(quotaInfo{Remaining: value}, viper.GetString("output"))
}
