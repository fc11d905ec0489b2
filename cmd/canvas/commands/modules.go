package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/edukit-io/canvas-client/pkg/canvas"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewModulesCommand creates the modules command group.
func NewModulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "modules",
		Aliases: []string{"module"},
		Short:   "Manage course modules",
		Long:    "List Canvas course modules and their items",
	}

	cmd.AddCommand(newModulesListCommand())
	cmd.AddCommand(newModulesItemsCommand())

	return cmd
}

func newModulesListCommand() *cobra.Command {
	var courseID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List modules in a course",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModulesListCommand(courseID)
		},
	}

	cmd.Flags().StringVar(&courseID, "course", "", "course ID (required)")

	return cmd
}

func runModulesListCommand(courseID string) error {
	if courseID == "" {
		return ErrCourseIDRequired
	}

	client, err := CreateClient(context.Background())
	if err != nil {
		return err
	}
	defer client.Close()

	modules, err := courseModules(client, courseID)
	if err != nil {
		return err
	}

	if err := modules.Get(context.Background()); err != nil {
		return fmt.Errorf("failed to list modules for course '%s': %w", courseID, err)
	}

	renderer := StandardRenderer(func(nodes []*canvas.Node) error {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Name", "Position", "Published")

		for _, module := range nodes {
			_ = table.Append(module.ID(), module.Title(),
				nodeFieldString(module, "position"),
				nodeFieldString(module, "published"))
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	})

	return renderer.Render(modules.Nodes(), viper.GetString("output"))
}

func newModulesItemsCommand() *cobra.Command {
	var (
		courseID string
		moduleID string
	)

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List items in a module",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModulesItemsCommand(courseID, moduleID)
		},
	}

	cmd.Flags().StringVar(&courseID, "course", "", "course ID (required)")
	cmd.Flags().StringVar(&moduleID, "module", "", "module ID (required)")

	return cmd
}

func runModulesItemsCommand(courseID, moduleID string) error {
	if courseID == "" {
		return ErrCourseIDRequired
	}

	if moduleID == "" {
		return ErrModuleIDRequired
	}

	client, err := CreateClient(context.Background())
	if err != nil {
		return err
	}
	defer client.Close()

	modules, err := courseModules(client, courseID)
	if err != nil {
		return err
	}

	module := modules.Shell(moduleID)

	items, ok := module.Children("module_item")
	if !ok {
		return fmt.Errorf("module '%s': %w", moduleID, canvas.ErrUnknownKind)
	}

	if err := items.Get(context.Background()); err != nil {
		return fmt.Errorf("failed to list items for module '%s': %w", moduleID, err)
	}

	renderer := StandardRenderer(func(nodes []*canvas.Node) error {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Title", "Type", "Position")

		for _, item := range nodes {
			_ = table.Append(item.ID(), item.Title(),
				nodeFieldString(item, "type"),
				nodeFieldString(item, "position"))
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	})

	return renderer.Render(items.Nodes(), viper.GetString("output"))
}

func courseModules(client canvas.Client, courseID string) (*canvas.Collection, error) {
	course := client.Course(courseID)

	modules, ok := course.Children("module")
	if !ok {
		return nil, fmt.Errorf("course '%s': %w", courseID, canvas.ErrUnknownKind)
	}

	return modules, nil
}
