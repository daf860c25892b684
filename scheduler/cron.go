package scheduler

import (
	"context"
	"log"
	"time"

	"studio-admin/mailer"
)

// StartRetryJob periodically re-dispatches failed delivery logs. Disabled
// when interval is zero.
func StartRetryJob(disp *mailer.Dispatcher, interval time.Duration) {
	if interval <= 0 {
		log.Println("Email retry job disabled")
		return
	}

	log.Printf("Starting email retry job (every %s)...", interval)

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			runRetry(disp)
		}
	}()
}

func runRetry(disp *mailer.Dispatcher) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := disp.RetryFailed(ctx)
	if err != nil {
		log.Printf("Email retry job failed: %v", err)
		return
	}
	if summary.RetriedCount > 0 {
		log.Printf("Email retry job: %d retried, %d succeeded, %d failed",
			summary.RetriedCount, summary.Succeeded, summary.Failed)
	}
}
