package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/snaplink/snaplink/internal/analytics"
	"github.com/snaplink/snaplink/internal/store"
)

func main() {
	var (
		redisURL = flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis connection string")
		alias    = flag.String("alias", "", "Alias to record clicks for")
		count    = flag.Int("count", 1, "Number of click events to append")
		interval = flag.Duration("interval", 0, "Delay between events (e.g. 100ms)")
	)
	flag.Parse()

	if *redisURL == "" {
		fmt.Fprintln(os.Stderr, "REDIS_URL is required")
		os.Exit(1)
	}
	if *alias == "" {
		fmt.Fprintln(os.Stderr, "-alias is required")
		os.Exit(1)
	}
	if *count < 1 {
		fmt.Fprintln(os.Stderr, "-count must be at least 1")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.New(ctx, *redisURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect redis:", err)
		os.Exit(1)
	}
	defer st.Close()

	stream := analytics.NewStream(st.Client())

	for i := 0; i < *count; i++ {
		id, err := stream.Append(ctx, analytics.ClickEvent{
			Alias:     *alias,
			ClickedAt: time.Now().UTC(),
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "append click event:", err)
			os.Exit(1)
		}
		fmt.Println(id)

		if *interval > 0 && i < *count-1 {
			time.Sleep(*interval)
		}
	}
}
