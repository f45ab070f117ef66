package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/refresh"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"
)

// serviceClient talks to a running refresher. Refreshes always go through the
// service so its run lock and snapshot cache stay authoritative.
type serviceClient struct {
	baseURL string
	http    *http.Client
}

func (c *serviceClient) trigger(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/refresh", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trigger refresh: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil
	case http.StatusConflict:
		return domain.ErrBusy
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("trigger refresh: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

func (c *serviceClient) status(ctx context.Context) (refresh.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return refresh.Status{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return refresh.Status{}, fmt.Errorf("read status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return refresh.Status{}, fmt.Errorf("read status: status %d", resp.StatusCode)
	}
	var st refresh.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return refresh.Status{}, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}

// waitFinished polls until a run that started after since has finished.
func (c *serviceClient) waitFinished(ctx context.Context, since *time.Time, every time.Duration) (refresh.Status, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		st, err := c.status(ctx)
		if err != nil {
			return refresh.Status{}, err
		}
		if !st.InProgress && startedAfter(st.LastStarted, since) {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return refresh.Status{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func startedAfter(started, since *time.Time) bool {
	if started == nil {
		return false
	}
	return since == nil || started.After(*since)
}

func newRefreshCmd() *cobra.Command {
	var (
		serviceURL string
		timeout    time.Duration
		wait       bool
		poll       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Ask the running refresher to start a refresh pass",
		Long: "refresh triggers a pass on the running refresher service. It never refreshes\n" +
			"in-process, so at most one pass runs and the service's cache stays current.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c := &serviceClient{
				baseURL: strings.TrimRight(serviceURL, "/"),
				http:    &http.Client{Timeout: timeout},
			}
			out := cmd.OutOrStdout()

			var since *time.Time
			if wait {
				before, err := c.status(ctx)
				if err != nil {
					return err
				}
				since = before.LastStarted
			}

			if err := c.trigger(ctx); err != nil {
				if errors.Is(err, domain.ErrBusy) {
					fmt.Fprintln(out, "status=busy")
					return fmt.Errorf("refresh already in progress: %w", err)
				}
				return err
			}
			fmt.Fprintln(out, "status=started")
			if !wait {
				return nil
			}

			st, err := c.waitFinished(ctx, since, poll)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "outcome=%s total=%d succeeded=%d failed=%d unprocessed=%d\n",
				st.LastOutcome, st.RegistrySize, st.SuccessCount, st.FailureCount, st.UnprocessedCount)
			if st.SuccessCount == 0 && st.RegistrySize > 0 {
				return fmt.Errorf("refresh produced no snapshots")
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&serviceURL, "url", sharedcfg.EnvOrDefault("REFRESHER_URL", "http://localhost:8080"), "Base URL of the refresher service")
	fl.DurationVar(&timeout, "timeout", 10*time.Second, "Per-request timeout")
	fl.BoolVar(&wait, "wait", false, "Wait for the pass to finish and print its counts")
	fl.DurationVar(&poll, "poll-interval", 2*time.Second, "Status polling interval with --wait")
	return cmd
}
