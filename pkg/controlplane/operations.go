package controlplane

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// smallCommands get the shorter subprocess timeout.
var smallCommands = map[string]bool{
	"add-tweet": true,
}

const (
	smallCommandTimeout = 60 * time.Second
	largeCommandTimeout = 300 * time.Second
	maxOutputBytes       = 4000
)

// permittedCommands is the operation-request allowlist.
var permittedCommands = map[string]bool{
	"add-tweet":        true,
	"collect":          true,
	"curate":           true,
	"curate-post":      true,
	"export-dashboard": true,
}

// ProcessOperations drains the remote operation-request queue oldest-first,
// running each as a subprocess of the running binary with per-user secrets
// injected into its environment, and reports status back to the remote
// store. binaryPath is typically os.Args[0].
func (c *Client) ProcessOperations(ctx context.Context, binaryPath string) (int, error) {
	requests, err := c.GetPendingOperationRequests(ctx)
	if err != nil {
		return 0, fmt.Errorf("controlplane: fetch operation requests: %w", err)
	}

	processed := 0
	for _, req := range requests {
		if !permittedCommands[req.Command] {
			c.failRequest(ctx, req, fmt.Sprintf("command %q is not permitted", req.Command))
			continue
		}

		if err := c.UpdateOperationRequest(ctx, req.UID, req.ID, OperationRequest{Status: "running"}); err != nil {
			c.logger.WithError(err).WithField("request_id", req.ID).Warn("controlplane: mark request running")
		}

		timeout := largeCommandTimeout
		if smallCommands[req.Command] {
			timeout = smallCommandTimeout
		}

		stdout, stderr, runErr := c.runOperation(ctx, binaryPath, req, timeout)

		update := OperationRequest{
			Status: "completed",
			Stdout: truncate(stdout, maxOutputBytes),
			Stderr: truncate(stderr, maxOutputBytes),
		}
		if runErr != nil {
			update.Status = "failed"
			update.Stderr = truncate(stderr+"\n"+runErr.Error(), maxOutputBytes)
		}

		if err := c.UpdateOperationRequest(ctx, req.UID, req.ID, update); err != nil {
			c.logger.WithError(err).WithField("request_id", req.ID).Error("controlplane: report request result")
		}
		processed++
	}

	return processed, nil
}

func (c *Client) failRequest(ctx context.Context, req OperationRequest, reason string) {
	update := OperationRequest{Status: "failed", Stderr: reason}
	if err := c.UpdateOperationRequest(ctx, req.UID, req.ID, update); err != nil {
		c.logger.WithError(err).WithField("request_id", req.ID).Error("controlplane: reject disallowed command")
	}
}

// runOperation invokes binaryPath as a subprocess, re-mapping req.Command
// and req.Args onto the local CLI's own command surface, with the
// requesting user's API keys (loaded from the remote api_keys/{uid}
// collection) overlaid onto a child environment.
func (c *Client) runOperation(ctx context.Context, binaryPath string, req OperationRequest, timeout time.Duration) (string, string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string{req.Command}, req.Args...)
	cmd := exec.CommandContext(runCtx, binaryPath, args...)

	env := append([]string(nil), os.Environ()...)
	if keys, err := c.GetAPIKeys(ctx, req.UID); err == nil {
		env = append(env, keys.Env()...)
	} else {
		c.logger.WithError(err).WithField("uid", req.UID).Warn("controlplane: load per-user secrets for operation request")
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"command":    req.Command,
		"uid":        req.UID,
	}).Info("controlplane: running operation request")

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
