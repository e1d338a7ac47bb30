package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"voyago/internal/agent"
	"voyago/internal/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.InitText()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		sessionID := uuid.NewString()
		fmt.Println("Voyago travel assistant. Ask anything, type 'exit' to quit.")

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("\nYou: ")
			if !scanner.Scan() {
				break
			}
			query := strings.TrimSpace(scanner.Text())
			if query == "" {
				continue
			}
			if q := strings.ToLower(query); q == "exit" || q == "quit" {
				fmt.Println("Bye!")
				return nil
			}

			fmt.Print("Bot: ")
			err := rt.runner.Run(ctx, sessionID, query, func(ev agent.Event) {
				switch ev.Type {
				case agent.EventToken:
					if s, ok := ev.Data.(string); ok {
						fmt.Print(s)
					}
				case agent.EventToolCall:
					if d, ok := ev.Data.(map[string]string); ok {
						fmt.Printf("\n[searching via %s...]\n", d["name"])
					}
				case agent.EventError:
					fmt.Printf("\n[error] %v\n", ev.Data)
				}
			})
			fmt.Println()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Println("Sorry, I encountered an error. Please try again.")
			}
		}
		return scanner.Err()
	},
}
