package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/pharma"
	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
)

var chatCmd = &cobra.Command{
	Use:   "chat [document-id]",
	Short: "Chat with the manufacturing assistant about a document",
	Long:  `Starts an interactive conversation grounded on one document. Type "exit" or press Ctrl+D to leave.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

type chatter interface {
	Chat(ctx context.Context, req pharmaapi.ChatRequest) (*pharmaapi.ChatResponse, error)
}

// conversation holds one document's transcript, starting with the greeting.
type conversation struct {
	api        chatter
	documentID string
	limit      int
	logger     *zap.Logger
	messages   []pharmaapi.Message
}

func newConversation(api chatter, documentID string, limit int, logger *zap.Logger) *conversation {
	return &conversation{
		api:        api,
		documentID: documentID,
		limit:      limit,
		logger:     logger,
		messages:   []pharmaapi.Message{{Role: pharmaapi.RoleAssistant, Content: pharma.Greeting}},
	}
}

// ask sends text with the most recent history and records both turns. A
// backend failure is answered with the apology and is not an error.
func (c *conversation) ask(ctx context.Context, text string) (answer string, sources []string) {
	history := pharmaapi.RecentHistory(c.messages, c.limit)
	c.messages = append(c.messages, pharmaapi.Message{Role: pharmaapi.RoleUser, Content: text})

	resp, err := c.api.Chat(ctx, pharmaapi.ChatRequest{
		DocumentID:          c.documentID,
		Message:             text,
		ConversationHistory: history,
	})
	if err != nil {
		c.logger.Error("chat request", zap.String("document", c.documentID), zap.Error(err))
		answer = pharma.ChatErrorMsg
	} else {
		answer, sources = resp.Response, resp.Sources
	}
	c.messages = append(c.messages, pharmaapi.Message{Role: pharmaapi.RoleAssistant, Content: answer})
	return answer, sources
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, logger, client, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	conv := newConversation(client, args[0], cfg.Chat.HistoryLimit, logger)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Assistant: %s\n\n", pharma.Greeting)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		prompt := promptui.Prompt{Label: "You"}
		text, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			return nil
		}

		answer, sources := conv.ask(ctx, text)
		printAnswer(out, answer, sources)
	}
}

func printAnswer(w io.Writer, answer string, sources []string) {
	fmt.Fprintf(w, "\nAssistant: %s\n", answer)
	if len(sources) > 0 {
		fmt.Fprintf(w, "Sources: %s\n", strings.Join(sources, ", "))
	}
	fmt.Fprintln(w)
}
