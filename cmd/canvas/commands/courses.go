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

// NewCoursesCommand creates the courses command group.
func NewCoursesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "courses",
		Aliases: []string{"course"},
		Short:   "Manage courses",
		Long:    "List, get, create, rename, and delete Canvas courses",
	}

	cmd.AddCommand(newCoursesListCommand())
	cmd.AddCommand(newCoursesGetCommand())
	cmd.AddCommand(newCoursesCreateCommand())
	cmd.AddCommand(newCoursesRenameCommand())
	cmd.AddCommand(newCoursesDeleteCommand())

	return cmd
}

func newCoursesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List courses",
		Long:  "List all courses the token has access to, across all pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoursesListCommand()
		},
	}
}

func runCoursesListCommand() error {
	client, err := CreateClient(context.Background())
	if err != nil {
		return err
	}
	defer client.Close()

	courses := client.Courses()
	if err := courses.Get(context.Background()); err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	renderer := StandardRenderer(func(nodes []*canvas.Node) error {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Name", "Course Code", "State")

		for _, course := range nodes {
			_ = table.Append(course.ID(), course.Title(),
				nodeFieldString(course, "course_code"),
				nodeFieldString(course, "workflow_state"))
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	})

	return renderer.Render(courses.Nodes(), viper.GetString("output"))
}

func newCoursesGetCommand() *cobra.Command {
	var complete bool

	cmd := &cobra.Command{
		Use:   "get COURSE_ID",
		Short: "Get course details",
		Long:  "Fetch a single course, optionally including its full module tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoursesGetCommand(args[0], complete)
		},
	}

	cmd.Flags().BoolVar(&complete, "complete", false, "fetch nested modules, items, and other children")

	return cmd
}

func runCoursesGetCommand(courseID string, complete bool) error {
	if courseID == "" {
		return ErrCourseIDRequired
	}

	client, err := CreateClient(context.Background())
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()

	var course *canvas.Node
	if complete {
		course, err = client.Courses().GetOneComplete(ctx, courseID)
	} else {
		course, err = client.Courses().GetOne(ctx, courseID)
	}

	if err != nil {
		return fmt.Errorf("failed to get course '%s': %w", courseID, err)
	}

	renderer := StandardRenderer(func(n *canvas.Node) error {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Property", "Value")
		_ = table.Append("ID", n.ID())
		_ = table.Append("Name", n.Title())
		_ = table.Append("Course Code", nodeFieldString(n, "course_code"))
		_ = table.Append("State", nodeFieldString(n, "workflow_state"))
		_ = table.Append("Start", nodeFieldString(n, "start_at"))
		_ = table.Append("End", nodeFieldString(n, "end_at"))

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	})

	return renderer.Render(course, viper.GetString("output"))
}

func newCoursesCreateCommand() *cobra.Command {
	var (
		name       string
		courseCode string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a course",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoursesCreateCommand(name, courseCode)
		},
	}

	cmd.Flags().StringVar(&name, "title", "", "course name (required)")
	cmd.Flags().StringVar(&courseCode, "code", "", "course code")

	return cmd
}

func runCoursesCreateCommand(name, courseCode string) error {
	if name == "" {
		return ErrTitleRequired
	}

	client, err := CreateClient(context.Background())
	if err != nil {
		return err
	}
	defer client.Close()

	data := map[string]interface{}{"name": name}
	if courseCode != "" {
		data["course_code"] = courseCode
	}

	course, err := client.Courses().Create(context.Background(), data)
	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}

	fmt.Printf("Created course '%s' with ID %s\n", course.Title(), course.ID())

	return nil
}

func newCoursesRenameCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "rename COURSE_ID",
		Short: "Rename a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoursesRenameCommand(args[0], name)
		},
	}

	cmd.Flags().StringVar(&name, "title", "", "new course name (required)")

	return cmd
}

func runCoursesRenameCommand(courseID, name string) error {
	if name == "" {
		return ErrTitleRequired
	}

	client, err := CreateClient(context.Background())
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()

	course, err := client.Courses().GetOne(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to get course '%s': %w", courseID, err)
	}

	course.SetTitle(name)

	if err := course.Update(ctx); err != nil {
		return fmt.Errorf("failed to update course '%s': %w", courseID, err)
	}

	fmt.Printf("Renamed course %s to '%s'\n", courseID, name)

	return nil
}

func newCoursesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete COURSE_ID",
		Short: "Delete a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoursesDeleteCommand(args[0])
		},
	}
}

func runCoursesDeleteCommand(courseID string) error {
	client, err := CreateClient(context.Background())
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Courses().Delete(context.Background(), courseID); err != nil {
		return fmt.Errorf("failed to delete course '%s': %w", courseID, err)
	}

	fmt.Printf("Deleted course %s\n", courseID)

	return nil
}
