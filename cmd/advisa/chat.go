package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/petrijr/advisa"
	"github.com/petrijr/advisa/internal/config"
	"github.com/petrijr/advisa/pkg/api"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the advisor from the terminal",
	Long: `Starts an interactive session against an in-memory engine. Provide a
process report as a JSON file with --report; type your questions and the
advisor answers. Use --offline to run without an OpenAI API key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		offline, _ := cmd.Flags().GetBool("offline")
		var o advisa.Oracle
		switch {
		case offline:
			o = keywordOracle{}
		case cfg.OpenAI.APIKey != "":
			o = advisa.NewOpenAIOracle(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		default:
			return fmt.Errorf("no OpenAI API key configured; pass --offline for keyword routing")
		}

		eng, err := advisa.NewInMemoryEngine(o, advisa.Options{})
		if err != nil {
			return err
		}

		var report *advisa.ProcessReport
		if path, _ := cmd.Flags().GetString("report"); path != "" {
			report, err = loadReport(path)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded process report with %d steps.\n", len(report.ProcessSteps))
		}

		threadID, _ := cmd.Flags().GetString("thread")
		if threadID == "" {
			threadID = uuid.NewString()
		}

		fmt.Println("Advisa chat. Type 'exit' to quit.")
		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Print("> ")
			line, err := reader.ReadString('\n')
			if err != nil {
				fmt.Println()
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				return nil
			}

			in := advisa.Input{UserInput: line, ProcessReport: report}
			// The report only needs to be sent once.
			report = nil

			state, err := eng.Invoke(context.Background(), threadID, in)
			if err != nil {
				fmt.Printf("error: %s\n", advisa.UserMessage(err))
				continue
			}
			for _, msg := range newAssistantTurns(state.ConversationHistory, line) {
				fmt.Println(msg)
			}
		}
	},
}

// newAssistantTurns returns the assistant messages that follow the last
// occurrence of the user's utterance, skipping bare route tags.
func newAssistantTurns(history []advisa.Message, utterance string) []string {
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == api.RoleUser && history[i].Content == utterance {
			start = i + 1
			break
		}
	}

	var out []string
	for _, msg := range history[start:] {
		if msg.Role != api.RoleAssistant {
			continue
		}
		if advisa.Route(msg.Content).Known() {
			continue
		}
		out = append(out, msg.Content)
	}
	return out
}

func loadReport(path string) (*advisa.ProcessReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report advisa.ProcessReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &report, nil
}

// keywordOracle routes by keyword so the chat works without an API key.
// The decider always finishes: offline sessions run one tool per turn.
type keywordOracle struct{}

func (keywordOracle) Complete(_ context.Context, messages []api.Message) (string, error) {
	if len(messages) == 0 {
		return string(api.RouteQuery), nil
	}
	if strings.Contains(messages[0].Content, "Available options") {
		return string(api.RouteFinish), nil
	}

	utterance := strings.ToLower(messages[len(messages)-1].Content)
	switch {
	case strings.Contains(utterance, "metric") || strings.Contains(utterance, "calculate"):
		return string(api.RouteMetrics), nil
	case strings.Contains(utterance, "gap") || strings.Contains(utterance, "missing"):
		return string(api.RouteFillGap), nil
	case strings.Contains(utterance, "advi") || strings.Contains(utterance, "improve") ||
		strings.Contains(utterance, "recommend") || strings.Contains(utterance, "suggest"):
		return string(api.RouteAdvisory), nil
	default:
		return string(api.RouteQuery), nil
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("report", "", "Path to a process report JSON file")
	chatCmd.Flags().String("thread", "", "Thread ID to use (defaults to a random one)")
	chatCmd.Flags().Bool("offline", false, "Route by keyword instead of calling OpenAI")
}
