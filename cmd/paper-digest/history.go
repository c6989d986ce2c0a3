package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear the processed-paper history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers recorded in the history file",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}

		entries := store.Entries()
		if len(entries) == 0 {
			fmt.Println("History is empty.")
			return nil
		}
		for _, e := range entries {
			doi := e.DOI
			if doi == "" {
				doi = "-"
			}
			fmt.Printf("%s  %-28s  %s\n", e.AddedDate, doi, e.Title)
		}
		fmt.Printf("\n%d paper(s) in history\n", store.Count())
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all entries from the history file",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}

		n := store.Count()
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Printf("Cleared %d entr(ies) from history.\n", n)
		return nil
	},
}

func openHistory() (*history.Store, error) {
	return history.Open(viper.GetString("storage.history_file"), os.Stderr)
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)

	rootCmd.AddCommand(historyCmd)
}
