package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewSessionCmd создаёт группу команд для управления сессиями.
func NewSessionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage flow sessions",
	}

	cmd.AddCommand(
		newSessionListCmd(clientFn, outputFn),
		newSessionCreateCmd(clientFn, outputFn),
		newSessionShowCmd(clientFn, outputFn),
		newSessionHistoryCmd(clientFn, outputFn),
		newSessionAdvanceCmd(clientFn, outputFn),
		newSessionResumeIntoCmd(clientFn, outputFn),
		newSessionPauseCmd(clientFn, outputFn),
		newSessionResumeCmd(clientFn, outputFn),
		newSessionAbortCmd(clientFn, outputFn),
		newSessionPurgeCmd(clientFn, outputFn),
	)

	return cmd
}

func sessionRow(s SessionResponse) []string {
	return []string{s.ID, s.Name, s.Status, s.DefinitionID, strconv.Itoa(s.Version), s.UpdatedAt}
}

var sessionHeaders = []string{"ID", "NAME", "STATUS", "DEFINITION", "VERSION", "UPDATED"}

func newSessionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListSessionsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List flow sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sessions, err := client.ListSessions(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(sessions))
			for i, s := range sessions {
				rows[i] = sessionRow(s)
			}

			out.Print(sessionHeaders, rows, sessions)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.DefinitionID, "definition", "", "Filter by definition ID")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (ACTIVE, PAUSED, COMPLETED, ABORTED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of sessions")

	return cmd
}

func newSessionCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CreateSessionRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session and start its first stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			created, err := client.CreateSession(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Session created: %s (stage %s)", created.Session.ID, created.Started.StageID))
			out.Print(sessionHeaders, [][]string{sessionRow(created.Session)}, created)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.DefinitionID, "definition", "", "Workflow definition ID (required)")
	cmd.Flags().IntVar(&req.Version, "version", 0, "Definition version to pin (default: latest)")
	cmd.Flags().StringVar(&req.Name, "name", "", "Session name")
	cmd.MarkFlagRequired("definition")

	return cmd
}

func newSessionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show session snapshot with current stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sc, err := client.GetSession(args[0])
			if err != nil {
				return err
			}

			if sc.Stage != nil {
				out.Success(fmt.Sprintf("Current stage: %s (%s)", sc.Stage.ID, sc.Stage.Name))
				for _, item := range sc.Stage.Checklist {
					out.Success("  [ ] " + item)
				}
			}
			out.Print(sessionHeaders, [][]string{sessionRow(sc.Session)}, sc)
			return nil
		},
	}
}

func newSessionHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "Show stage instance history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			history, err := client.GetHistory(args[0])
			if err != nil {
				return err
			}

			headers := []string{"STAGE", "ATTEMPT", "STATUS", "STARTED", "COMPLETED"}
			rows := make([][]string, len(history))
			for i, inst := range history {
				rows[i] = []string{inst.StageID, strconv.Itoa(inst.Attempt), inst.Status, inst.StartedAt, inst.CompletedAt}
			}

			out.Print(headers, rows, history)
			return nil
		},
	}
}

func newSessionAdvanceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var resultJSON string

	cmd := &cobra.Command{
		Use:   "advance ID",
		Short: "Complete the active stage and advance the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var result map[string]any
			if resultJSON != "" {
				if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
					return fmt.Errorf("invalid --result JSON: %w", err)
				}
			}

			res, err := client.Advance(args[0], result)
			if err != nil {
				return err
			}

			switch res.Outcome {
			case "ADVANCED":
				out.Success(fmt.Sprintf("Advanced to stage %s", res.Started.StageID))
			case "COMPLETED":
				out.Success("Session completed")
			case "DECISION_REQUIRED":
				out.Success("Multiple next stages, pick one with resume-into:")
				for _, s := range res.NextStages {
					out.Success("  " + s.ID)
				}
			case "BLOCKED":
				out.Success("No transition matched, session stays on hold")
			}

			out.Print(sessionHeaders, [][]string{sessionRow(res.Session)}, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&resultJSON, "result", "", "Stage result as JSON object")

	return cmd
}

func newSessionResumeIntoCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "resume-into ID STAGE_ID",
		Short: "Start a chosen stage after a decision point",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			inst, err := client.ResumeInto(args[0], args[1])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Started stage %s (attempt %d)", inst.StageID, inst.Attempt))
			out.Print(
				[]string{"ID", "STAGE", "ATTEMPT", "STATUS", "STARTED"},
				[][]string{{inst.ID, inst.StageID, strconv.Itoa(inst.Attempt), inst.Status, inst.StartedAt}},
				inst,
			)
			return nil
		},
	}
}

func newSessionPauseCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "pause ID",
		Short: "Pause a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sess, err := client.Pause(args[0])
			if err != nil {
				return err
			}

			out.Success("Session paused")
			out.Print(sessionHeaders, [][]string{sessionRow(*sess)}, sess)
			return nil
		},
	}
}

func newSessionResumeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "resume ID",
		Short: "Resume a paused session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sess, err := client.Resume(args[0])
			if err != nil {
				return err
			}

			out.Success("Session resumed")
			out.Print(sessionHeaders, [][]string{sessionRow(*sess)}, sess)
			return nil
		},
	}
}

func newSessionAbortCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "abort ID",
		Short: "Abort a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sess, err := client.Abort(args[0], reason)
			if err != nil {
				return err
			}

			out.Success("Session aborted")
			out.Print(sessionHeaders, [][]string{sessionRow(*sess)}, sess)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Abort reason")

	return cmd
}

func newSessionPurgeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "purge ID",
		Short: "Delete a session and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.PurgeSession(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Session purged: %s", args[0]))
			return nil
		},
	}
}
