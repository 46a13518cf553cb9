// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the test signal verification and the run history alerts as tools.
package mcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opensonata/sonata-verify/internal/observability"
	"github.com/opensonata/sonata-verify/pkg/models"
)

// Verifier runs a complete verification for the activity after since and
// writes the human readable report to out. Alerts evaluates the alert
// conditions over the recorded runs.
type Verifier interface {
	Verify(ctx context.Context, since time.Time, out io.Writer) (*models.Report, error)
	Alerts() ([]observability.Alert, error)
}

// Server wraps a Verifier and exposes it as MCP tools.
type Server struct {
	server   *gomcp.Server
	verifier Verifier
	cfg      *models.Config
}

// NewServer creates a new MCP server for the given verifier and configuration.
func NewServer(verifier Verifier, cfg *models.Config, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		verifier: verifier,
		cfg:      cfg,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "sonata-verify", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type verifyInput struct {
	Since int64 `json:"since" jsonschema:"unix timestamp in seconds taken before the test activity started"`
}

type findingOutput struct {
	Check    string `json:"check"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type checkOutput struct {
	Name     string `json:"name"`
	Rows     int    `json:"rows"`
	Warnings int    `json:"warnings"`
	Errors   int    `json:"errors"`
	Aborted  bool   `json:"aborted"`
}

type verifyOutput struct {
	RunID          string          `json:"run_id"`
	Passed         bool            `json:"passed"`
	ExitStatus     int             `json:"exit_status"`
	Warnings       int             `json:"warnings"`
	Errors         int             `json:"errors"`
	Checks         []checkOutput   `json:"checks"`
	Findings       []findingOutput `json:"findings"`
	NodesSawSignal []string        `json:"nodes_saw_signal"`
	Transcript     string          `json:"transcript"`
}

type getRosterInput struct{}

type getRosterOutput struct {
	Roster       []string `json:"roster"`
	Count        int      `json:"count"`
	FrequencyMHz float64  `json:"frequency_mhz"`
	ToleranceMHz float64  `json:"tolerance_mhz"`
	Reason       string   `json:"reason"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID        string `json:"id"`
	Condition string `json:"condition"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name: "verify_test_signal",
		Description: "Verify that the calibration test signal was confirmed by every expected dx node " +
			"for the activity that started after the given unix timestamp. Returns warnings, errors and the exit status.",
	}, s.handleVerify)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_roster",
		Description: "Return the expected dx node roster and the test signal frequency window.",
	}, s.handleGetRoster)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate alert conditions over the recorded verification runs: repeated failures, nodes repeatedly missing the test signal, no recent run.",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleVerify(ctx context.Context, _ *gomcp.CallToolRequest, input verifyInput) (*gomcp.CallToolResult, verifyOutput, error) {
	if input.Since <= 0 {
		return errorResult("since must be a positive unix timestamp"), verifyOutput{}, nil
	}

	var transcript bytes.Buffer
	rep, err := s.verifier.Verify(ctx, time.Unix(input.Since, 0), &transcript)
	if err != nil {
		return errorResult(fmt.Sprintf("running verification: %s", err)), verifyOutput{}, nil
	}

	out := verifyOutput{
		RunID:          rep.RunID,
		Passed:         rep.ExitStatus == 0,
		ExitStatus:     rep.ExitStatus,
		Warnings:       rep.Warnings,
		Errors:         rep.Errors,
		Checks:         make([]checkOutput, len(rep.Checks)),
		Findings:       make([]findingOutput, len(rep.Findings)),
		NodesSawSignal: rep.NodesSawSignal,
		Transcript:     transcript.String(),
	}
	for i, c := range rep.Checks {
		out.Checks[i] = checkOutput{Name: c.Name, Rows: c.Rows, Warnings: c.Warnings, Errors: c.Errors, Aborted: c.Aborted}
	}
	for i, f := range rep.Findings {
		out.Findings[i] = findingOutput{Check: f.Check, Severity: string(f.Severity), Message: f.Message}
	}
	return nil, out, nil
}

func (s *Server) handleGetRoster(_ context.Context, _ *gomcp.CallToolRequest, _ getRosterInput) (*gomcp.CallToolResult, getRosterOutput, error) {
	return nil, getRosterOutput{
		Roster:       s.cfg.Roster,
		Count:        len(s.cfg.Roster),
		FrequencyMHz: s.cfg.TestSignal.FrequencyMHz,
		ToleranceMHz: s.cfg.TestSignal.ToleranceMHz,
		Reason:       s.cfg.TestSignal.Reason,
	}, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	alerts, err := s.verifier.Alerts()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:        a.ID,
			Condition: a.Condition,
			Severity:  string(a.Severity),
			Message:   a.Message,
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
