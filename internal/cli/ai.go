package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/fine-dev/fine-go/pkg/ai"
	"github.com/fine-dev/fine-go/pkg/fine"
)

type messageFlags struct {
	thread   string
	metadata []string
	attach   []string
}

func (f *messageFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.thread, "thread", "", "Send the message within this thread")
	cmd.Flags().StringArrayVar(&f.metadata, "metadata", nil, "Run metadata key=value, repeatable")
	cmd.Flags().StringArrayVar(&f.attach, "attach", nil, "Attach an image file, repeatable")
}

func (f *messageFlags) message(client *fine.Client, args []string) (*ai.Message, error) {
	content, err := messageContent(strings.Join(args[1:], " "), f.attach)
	if err != nil {
		return nil, err
	}
	md, err := parseMetadata(f.metadata)
	if err != nil {
		return nil, err
	}
	var msg *ai.Message
	if f.thread != "" {
		msg = client.AI.Thread(f.thread).Message(args[0], content)
	} else {
		msg = client.AI.Message(args[0], content)
	}
	if md != nil {
		msg.SetMetadata(md)
	}
	return msg, nil
}

func newAICmd() *cobra.Command {
	aiCmd := &cobra.Command{
		Use:   "ai [command]",
		Short: "Run assistants and manage threads",
		Long: `Send messages to assistants and manage conversation threads.

Examples:
  # Wait for the complete result
  fine ai send asst_123 "What changed this week?"

  # Stream the run, printing text as it arrives
  fine ai stream asst_123 "Draft a status update" --thread thr_42

  # Ask about an image
  fine ai send asst_123 "What is in this picture?" --attach photo.png`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	aiCmd.AddCommand(newAISendCmd(), newAIStreamCmd(), newThreadsCmd())
	return aiCmd
}

func newAISendCmd() *cobra.Command {
	f := &messageFlags{}
	var path string
	var retries uint
	cmd := &cobra.Command{
		Use:   "send ASSISTANT_ID [MESSAGE...]",
		Short: "Send a message and wait for the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newFineClient()
			if err != nil {
				return err
			}
			msg, err := f.message(client, args)
			if err != nil {
				return err
			}
			var raw json.RawMessage
			err = withRetries(cmd.Context(), retries, func() error {
				var err error
				raw, err = msg.Send(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}
			if path != "" {
				raw = json.RawMessage(gjson.GetBytes(raw, path).Raw)
			}
			return printResult(cmd.OutOrStdout(), raw)
		},
	}
	f.add(cmd)
	cmd.Flags().StringVar(&path, "path", "", "Print only the part of the result at this gjson path")
	cmd.Flags().UintVar(&retries, "retries", 0, "Retry transport failures, 429 and 5xx responses up to this many times")
	return cmd
}

func newAIStreamCmd() *cobra.Command {
	f := &messageFlags{}
	var textPath string
	cmd := &cobra.Command{
		Use:   "stream ASSISTANT_ID [MESSAGE...]",
		Short: "Send a message and print the run as it streams",
		Long: `Send a message and print the run as it streams. Text found at --text-path in an
event is printed as it arrives; other events are shown by type. With -j every event is
printed as one line of JSON. Interrupting the command stops reading the stream.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newFineClient()
			if err != nil {
				return err
			}
			msg, err := f.message(client, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			printer := newStreamPrinter(cmd.OutOrStdout(), textPath, jsonOutput)
			stream, err := msg.Stream(ctx, printer.handle)
			if err != nil {
				// the failure was delivered to the printer as a runError event
				printer.finish()
				return ErrAlreadyHandled
			}

			go func() {
				select {
				case <-ctx.Done():
					stream.Close()
				case <-stream.Done():
				}
			}()

			err = stream.Wait()
			printer.finish()
			if err != nil || printer.failed {
				return ErrAlreadyHandled
			}
			if ctx.Err() != nil {
				return fmt.Errorf("stream interrupted")
			}
			return nil
		},
	}
	f.add(cmd)
	cmd.Flags().StringVar(&textPath, "text-path", "text", "gjson path of the text carried by an event")
	return cmd
}

func newThreadsCmd() *cobra.Command {
	threadsCmd := &cobra.Command{
		Use:   "threads [command]",
		Short: "Manage conversation threads",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newFineClient()
			if err != nil {
				return err
			}
			threads, err := client.AI.Threads(cmd.Context())
			if err != nil {
				return err
			}
			items := make([]json.RawMessage, 0, len(threads))
			for _, t := range threads {
				data, err := t.Data(cmd.Context())
				if err != nil {
					return err
				}
				items = append(items, data)
			}
			raw, err := json.Marshal(items)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), raw)
		},
	}

	get := &cobra.Command{
		Use:   "get THREAD_ID",
		Short: "Show a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newFineClient()
			if err != nil {
				return err
			}
			data, err := client.AI.Thread(args[0]).Data(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), data)
		},
	}

	messages := &cobra.Command{
		Use:   "messages THREAD_ID",
		Short: "List the messages of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newFineClient()
			if err != nil {
				return err
			}
			msgs, err := client.AI.Thread(args[0]).Messages(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), msgs)
		},
	}

	var metadata []string
	update := &cobra.Command{
		Use:   "update THREAD_ID --metadata key=value",
		Short: "Replace a thread's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := parseMetadata(metadata)
			if err != nil {
				return err
			}
			if md == nil {
				md = map[string]any{}
			}
			client, err := newFineClient()
			if err != nil {
				return err
			}
			data, err := client.AI.Thread(args[0]).Update(cmd.Context(), md)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), data)
		},
	}
	update.Flags().StringArrayVar(&metadata, "metadata", nil, "Metadata key=value, repeatable")

	del := &cobra.Command{
		Use:   "delete THREAD_ID",
		Short: "Delete a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newFineClient()
			if err != nil {
				return err
			}
			if err := client.AI.Thread(args[0]).Delete(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				printJSON(out, map[string]any{"result": 1, "deleted": args[0]})
			} else {
				okLabel.Fprintf(out, "Deleted thread %s\n", args[0])
			}
			return nil
		},
	}

	threadsCmd.AddCommand(list, get, messages, update, del)
	return threadsCmd
}
