package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewDefinitionCmd создаёт группу команд для управления definitions.
func NewDefinitionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "definition",
		Aliases: []string{"def"},
		Short:   "Manage workflow definitions",
	}

	cmd.AddCommand(
		newDefinitionListCmd(clientFn, outputFn),
		newDefinitionShowCmd(clientFn, outputFn),
		newDefinitionPublishCmd(clientFn, outputFn),
		newDefinitionVersionsCmd(clientFn, outputFn),
	)

	return cmd
}

func newDefinitionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflow definitions (latest versions)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			defs, err := client.ListDefinitions()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "VERSION", "STAGES", "CREATED"}
			rows := make([][]string, len(defs))
			for i, d := range defs {
				rows[i] = []string{d.ID, d.Name, strconv.Itoa(d.Version), strconv.Itoa(len(d.Stages)), d.CreatedAt}
			}

			out.Print(headers, rows, defs)
			return nil
		},
	}
}

func newDefinitionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show definition stages and transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var def *DefinitionResponse
			var err error
			if version > 0 {
				def, err = client.GetDefinitionVersion(args[0], version)
			} else {
				def, err = client.GetDefinition(args[0])
			}
			if err != nil {
				return err
			}

			headers := []string{"STAGE", "NAME", "ORDINAL", "START", "TERMINAL"}
			rows := make([][]string, len(def.Stages))
			for i, s := range def.Stages {
				rows[i] = []string{
					s.ID, s.Name, strconv.Itoa(s.Ordinal),
					strconv.FormatBool(s.IsStart), strconv.FormatBool(s.IsTerminal),
				}
			}

			out.Success(fmt.Sprintf("%s (version %d)", def.Name, def.Version))
			out.Print(headers, rows, def)
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "Definition version (default: latest)")

	return cmd
}

func newDefinitionPublishCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var draftFile string
	var defID string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a definition version from a draft file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(draftFile)
			if err != nil {
				return fmt.Errorf("failed to read draft file: %w", err)
			}

			// Валидируем что это валидный JSON
			if !json.Valid(data) {
				return fmt.Errorf("draft file is not valid JSON")
			}

			var pub *PublishedResponse
			if defID != "" {
				pub, err = client.PublishVersion(defID, json.RawMessage(data))
			} else {
				pub, err = client.PublishDefinition(json.RawMessage(data))
			}
			if err != nil {
				return err
			}

			def := pub.Definition
			out.Success(fmt.Sprintf("Published %s version %d", def.ID, def.Version))
			for _, warning := range pub.Warnings {
				out.Warn(warning)
			}
			out.Print(
				[]string{"ID", "NAME", "VERSION", "STAGES", "CREATED"},
				[][]string{{def.ID, def.Name, strconv.Itoa(def.Version), strconv.Itoa(len(def.Stages)), def.CreatedAt}},
				pub,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&draftFile, "draft-file", "", "Path to draft JSON file (required)")
	cmd.Flags().StringVar(&defID, "definition", "", "Existing definition ID (omit to create a new one)")
	cmd.MarkFlagRequired("draft-file")

	return cmd
}

func newDefinitionVersionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "versions ID",
		Short: "List definition versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			versions, err := client.ListVersions(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "VERSION", "NAME", "STAGES", "CREATED"}
			rows := make([][]string, len(versions))
			for i, v := range versions {
				rows[i] = []string{v.ID, strconv.Itoa(v.Version), v.Name, strconv.Itoa(len(v.Stages)), v.CreatedAt}
			}

			out.Print(headers, rows, versions)
			return nil
		},
	}
}
