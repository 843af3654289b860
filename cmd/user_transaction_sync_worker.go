/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/bitstamp-client/internal/bootstrap"
	"github.com/spf13/cobra"
)

// userTransactionSyncWorkerCmd represents the userTransactionSyncWorker command
var userTransactionSyncWorkerCmd = &cobra.Command{
	Use:   "user-transaction-sync-worker",
	Short: "Sync Bitstamp user transactions into postgres",
	Long: `Periodically pages through the account's user transactions of every pair in
user_transaction_sync.pairs and stores the ones newer than the redis cursor.`,
	Run: bootstrap.StartUserTransactionSyncWorker,
}

func init() {
	rootCmd.AddCommand(userTransactionSyncWorkerCmd)
}
