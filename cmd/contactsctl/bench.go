package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/contact-manager/internal/apiclient"
	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
)

func newBenchCmd(o *options) *cobra.Command {
	var sizes []int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure the average latency of the REST operations",
		Long: `bench creates, replaces, reads and deletes the given number of contacts and prints
the average latency of each operation in microseconds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.Context(), o.client, cmd.OutOrStdout(), sizes)
		},
	}
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{1000, 5000, 10000, 50000, 100000}, "numbers of contacts per round")
	return cmd
}

// benchContact is the payload of every request.
var benchContact = model.Contact{
	FullName:    "Marcus Antonius",
	Email:       "marcus@antonius.it",
	PhoneNumber: "+39 999 777 555",
	Tags:        model.JoinTags([]string{"bench"}),
}

func runBench(ctx context.Context, client *apiclient.Client, out io.Writer, sizes []int) error {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Elements      POST       PUT       GET    DELETE ")
	fmt.Fprintln(out, "---------------------------------------------------")
	for _, loops := range sizes {
		if loops < 1 {
			return fmt.Errorf("invalid size %d", loops)
		}
		fmt.Fprintf(out, "%10d", loops)

		// POST requests
		ids := make([]int64, 0, loops)
		var duration time.Duration
		for i := 0; i < loops; i++ {
			before := time.Now()
			created, err := client.Create(ctx, benchContact)
			if err != nil {
				return err
			}
			duration += time.Since(before)
			ids = append(ids, created.Id)
		}
		fmt.Fprintf(out, "%10d", duration.Microseconds()/int64(loops))

		// PUT requests
		if err := callInLoop(out, ids, func(id int64) error {
			_, err := client.Update(ctx, id, benchContact)
			return err
		}); err != nil {
			return err
		}
		// GET requests
		if err := callInLoop(out, ids, func(id int64) error {
			_, err := client.Get(ctx, id)
			return err
		}); err != nil {
			return err
		}
		// DELETE requests
		if err := callInLoop(out, ids, func(id int64) error {
			return client.Remove(ctx, id)
		}); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}

// callInLoop calls f for every id in random order and prints the average latency.
func callInLoop(out io.Writer, ids []int64, f func(id int64) error) error {
	shuffled := append([]int64(nil), ids...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	var duration time.Duration
	for _, id := range shuffled {
		before := time.Now()
		if err := f(id); err != nil {
			return err
		}
		duration += time.Since(before)
	}
	fmt.Fprintf(out, "%10d", duration.Microseconds()/int64(len(ids)))
	return nil
}
