package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPointerCmd создаёт группу команд для указателей caller→session.
func NewPointerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pointer",
		Short: "Manage caller session pointers",
	}

	cmd.AddCommand(
		newPointerShowCmd(clientFn, outputFn),
		newPointerSetCmd(clientFn, outputFn),
		newPointerClearCmd(clientFn, outputFn),
	)

	return cmd
}

var pointerHeaders = []string{"CALLER", "SESSION", "UPDATED"}

func newPointerShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show CALLER",
		Short: "Show the session a caller points at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			p, err := client.GetPointer(args[0])
			if err != nil {
				return err
			}

			out.Print(pointerHeaders, [][]string{{p.Caller, p.SessionID, p.UpdatedAt}}, p)
			return nil
		},
	}
}

func newPointerSetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "set CALLER SESSION_ID",
		Short: "Point a caller at a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			p, err := client.SetPointer(args[0], args[1])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Pointer set: %s -> %s", p.Caller, p.SessionID))
			out.Print(pointerHeaders, [][]string{{p.Caller, p.SessionID, p.UpdatedAt}}, p)
			return nil
		},
	}
}

func newPointerClearCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "clear CALLER",
		Short: "Clear a caller pointer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeletePointer(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Pointer cleared: %s", args[0]))
			return nil
		},
	}
}
