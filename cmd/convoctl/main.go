package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"convoctx/ctxmgr"
	"convoctx/ctxmgr/store"
	"convoctx/logger"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v3"
)

func main() {
	log.Logger = logger.Get()

	app := &cli.Command{
		Name:  "convoctl",
		Usage: "inspect and drive the conversation context manager",
		Commands: []*cli.Command{
			newRenderCommand(),
			newInspectCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("convoctl failed")
	}
}

// conversationFile is the on-disk shape a caller feeds convoctl: the raw
// message history plus the log entries observed since the task began.
type conversationFile struct {
	ConversationID string            `json:"conversationId"`
	ContextWindow  int               `json:"contextWindow"`
	History        []ctxmgr.Message  `json:"history"`
	LogEntries     []ctxmgr.LogEntry `json:"logEntries"`
}

func newRenderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "run the context manager over a conversation and print the rendered view",
		ArgsUsage: "<conversation.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "policy", Usage: "path to a YAML policy override file"},
			&cli.StringFlag{Name: "db", Value: "convoctl.db", Usage: "path to the checkpoint database"},
			&cli.Int64Flag{Name: "timestamp", Value: 0, Usage: "Edit Log timestamp to record for this pass"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one argument: <conversation.json>")
			}
			conv, err := loadConversationFile(cmd.Args().First())
			if err != nil {
				return err
			}
			if conv.ConversationID == "" {
				// Anonymous input (e.g. piped from a one-off tool run): mint
				// a checkpoint key so the save below doesn't collide with a
				// real conversation.
				conv.ConversationID = "anon_" + ksuid.New().String()
			}

			policy := ctxmgr.DefaultPolicy()
			if p := cmd.String("policy"); p != "" {
				policy, err = ctxmgr.LoadPolicy(p)
				if err != nil {
					return err
				}
			}

			st, err := store.NewSQLiteStore(cmd.String("db"), log.Logger)
			if err != nil {
				return fmt.Errorf("failed to open checkpoint store: %w", err)
			}
			defer st.Close()

			manager := ctxmgr.NewManager(policy, ctxmgr.DefaultNotices{}, log.Logger)
			if cp, ok, err := st.LoadCheckpoint(ctx, conv.ConversationID); err != nil {
				return fmt.Errorf("failed to load checkpoint: %w", err)
			} else if ok {
				manager.Restore(cp.EditLog, cp.Deleted)
			}

			rendered := manager.PrepareNextContext(conv.History, conv.LogEntries, conv.ContextWindow, cmd.Int64("timestamp"))

			if err := st.SaveCheckpoint(ctx, store.Checkpoint{
				ConversationID: conv.ConversationID,
				Deleted:        manager.DeletedRange(),
				EditLog:        manager.EditLog(),
			}); err != nil {
				return fmt.Errorf("failed to save checkpoint: %w", err)
			}

			return printJSON(rendered)
		},
	}
}

func newInspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "print the current deletion range and edit log for a conversation",
		ArgsUsage: "<conversationId>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: "convoctl.db", Usage: "path to the checkpoint database"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one argument: <conversationId>")
			}

			st, err := store.NewSQLiteStore(cmd.String("db"), log.Logger)
			if err != nil {
				return fmt.Errorf("failed to open checkpoint store: %w", err)
			}
			defer st.Close()

			cp, ok, err := st.LoadCheckpoint(ctx, cmd.Args().First())
			if err != nil {
				return fmt.Errorf("failed to load checkpoint: %w", err)
			}
			if !ok {
				fmt.Println("no checkpoint recorded")
				return nil
			}

			editLogJSON, err := cp.EditLog.Serialize()
			if err != nil {
				return fmt.Errorf("failed to serialize edit log: %w", err)
			}

			fmt.Printf("deleted: [%d, %d]\n", cp.Deleted.Start, cp.Deleted.End)
			fmt.Printf("editLog: %s\n", editLogJSON)
			return nil
		},
	}
}

func loadConversationFile(path string) (conversationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return conversationFile{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var conv conversationFile
	if err := json.Unmarshal(data, &conv); err != nil {
		return conversationFile{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return conv, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
